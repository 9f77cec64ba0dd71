package backup_test

import (
	"context"
	"testing"
	"time"

	"menueditor-backend/internal/backup"
	apperrors "menueditor-backend/pkg/errors"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func names(t *testing.T, fs billy.Filesystem, dir string) []string {
	t.Helper()
	infos, err := fs.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Name())
	}
	return out
}

func TestRotator_Disabled(t *testing.T) {
	t.Run("Should not touch the filesystem", func(t *testing.T) {
		// Arrange
		fs := memfs.New()
		r := backup.NewRotator(fs, backup.Policy{Enabled: false, Folder: "backups", Keep: 3}, zap.NewNop())

		// Act
		rec, err := r.Rotate(context.Background(), []byte("main: []\n"))

		// Assert
		require.NoError(t, err)
		assert.Nil(t, rec)
		_, statErr := fs.Stat("backups")
		assert.Error(t, statErr)
	})
}

func TestRotator_Rotate(t *testing.T) {
	start := time.Unix(1700000000, 0)

	t.Run("Should write a snapshot named after the clock", func(t *testing.T) {
		fs := memfs.New()
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 3}, zap.NewNop(),
			backup.WithClock(stepClock(start, time.Second)))

		rec, err := r.Rotate(context.Background(), []byte("main: []\n"))
		require.NoError(t, err)

		assert.Equal(t, "menu.1700000000.yml", rec.Name)
		assert.Equal(t, int64(9), rec.Size)
		data, err := util.ReadFile(fs, "backups/menu.1700000000.yml")
		require.NoError(t, err)
		assert.Equal(t, "main: []\n", string(data))
	})

	t.Run("Should keep at most Keep snapshots and delete the oldest", func(t *testing.T) {
		fs := memfs.New()
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 2}, zap.NewNop(),
			backup.WithClock(stepClock(start, time.Second)))

		for i := 0; i < 5; i++ {
			_, err := r.Rotate(context.Background(), []byte("v"))
			require.NoError(t, err)
		}

		assert.ElementsMatch(t, []string{"menu.1700000003.yml", "menu.1700000004.yml"}, names(t, fs, "backups"))
	})

	t.Run("Should order by timestamp rather than by name", func(t *testing.T) {
		fs := memfs.New()
		// 999999999 sorts after 1700000000 as text but is older.
		require.NoError(t, util.WriteFile(fs, "backups/menu.999999999.yml", []byte("old"), 0o644))
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 1}, zap.NewNop(),
			backup.WithClock(stepClock(start, time.Second)))

		_, err := r.Rotate(context.Background(), []byte("new"))
		require.NoError(t, err)

		assert.Equal(t, []string{"menu.1700000000.yml"}, names(t, fs, "backups"))
	})

	t.Run("Should ignore foreign files", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "backups/README.md", []byte("notes"), 0o644))
		require.NoError(t, util.WriteFile(fs, "backups/menu.yml", []byte("main: []"), 0o644))
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 1}, zap.NewNop(),
			backup.WithClock(stepClock(start, time.Second)))

		for i := 0; i < 3; i++ {
			_, err := r.Rotate(context.Background(), []byte("v"))
			require.NoError(t, err)
		}

		assert.ElementsMatch(t, []string{"README.md", "menu.yml", "menu.1700000002.yml"}, names(t, fs, "backups"))
	})

	t.Run("Should overwrite a snapshot taken in the same second by default", func(t *testing.T) {
		fs := memfs.New()
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 5}, zap.NewNop(),
			backup.WithClock(stepClock(start, 0)))

		_, err := r.Rotate(context.Background(), []byte("first"))
		require.NoError(t, err)
		_, err = r.Rotate(context.Background(), []byte("second"))
		require.NoError(t, err)

		assert.Equal(t, []string{"menu.1700000000.yml"}, names(t, fs, "backups"))
		data, err := util.ReadFile(fs, "backups/menu.1700000000.yml")
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("Should add a sequence suffix with the suffix policy", func(t *testing.T) {
		fs := memfs.New()
		r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 2, Collision: backup.CollisionSuffix},
			zap.NewNop(), backup.WithClock(stepClock(start, 0)))

		for i := 0; i < 3; i++ {
			_, err := r.Rotate(context.Background(), []byte("v"))
			require.NoError(t, err)
		}

		assert.ElementsMatch(t, []string{"menu.1700000000-1.yml", "menu.1700000000-2.yml"}, names(t, fs, "backups"))
	})

	t.Run("Should report a cancelled context as a backup failure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := backup.NewRotator(memfs.New(), backup.Policy{Enabled: true, Folder: "backups", Keep: 1}, zap.NewNop())

		_, err := r.Rotate(ctx, []byte("v"))
		assert.True(t, apperrors.IsBackupFailed(err))
	})
}

func TestRotator_ListAndRead(t *testing.T) {
	fs := memfs.New()
	r := backup.NewRotator(fs, backup.Policy{Enabled: true, Folder: "backups", Keep: 3}, zap.NewNop(),
		backup.WithClock(stepClock(time.Unix(100, 0), time.Minute)))
	for _, v := range []string{"one", "two"} {
		_, err := r.Rotate(context.Background(), []byte(v))
		require.NoError(t, err)
	}

	t.Run("Should list newest first", func(t *testing.T) {
		records, err := r.List(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "menu.160.yml", records[0].Name)
		assert.Equal(t, "menu.100.yml", records[1].Name)
		assert.Equal(t, int64(3), records[0].Size)
	})

	t.Run("Should read a snapshot", func(t *testing.T) {
		data, err := r.Read(context.Background(), "menu.100.yml")
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
	})

	t.Run("Should report unknown snapshots as not found", func(t *testing.T) {
		_, err := r.Read(context.Background(), "menu.1.yml")
		assert.True(t, apperrors.IsNotFound(err))

		_, err = r.Read(context.Background(), "../menu.yml")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestParseName(t *testing.T) {
	rec, ok := backup.ParseName("menu.1700000000-2.yml")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), rec.Timestamp.Unix())
	assert.Equal(t, 2, rec.Sequence)

	_, ok = backup.ParseName("menu.yml")
	assert.False(t, ok)
}
