package editor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/config"
	"menueditor-backend/internal/infrastructure/messaging"
	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/internal/menu"
	"menueditor-backend/internal/service/editor"
	"menueditor-backend/internal/storage"
	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

const (
	menuFile     = "config/menu.yml"
	backupFolder = "menu-backups"
	stored       = "main:\n  - label: Old\n    link: /old\n"
	validPayload = `{"main":[{"label":"Home","link":"/","submenu":[{"label":"About","path":"page/about"}]}],"footer":[]}`
)

func operator() context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{UserID: "op-1", Permissions: []string{editor.Permission}})
}

// stepClock returns a clock that advances by one second on every call.
func stepClock() func() time.Time {
	current := time.Unix(1700000000, 0)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

type fixture struct {
	fs      billy.Filesystem
	service editor.Service
	metrics *observability.Collector
}

func newFixture(t *testing.T, policy backup.Policy, opts editor.Options) *fixture {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, menuFile, []byte(stored), 0o644))
	metrics := observability.NewCollector("test")
	rotator := backup.NewRotator(fs, policy, zap.NewNop(), backup.WithClock(stepClock()))
	store := storage.NewFileStore(fs, menuFile, zap.NewNop())
	return &fixture{
		fs:      fs,
		service: editor.NewService(store, rotator, nil, metrics, zap.NewNop(), opts),
		metrics: metrics,
	}
}

func (f *fixture) stored(t *testing.T) string {
	t.Helper()
	data, err := util.ReadFile(f.fs, menuFile)
	require.NoError(t, err)
	return string(data)
}

func TestService_Save(t *testing.T) {
	t.Run("Should write a validated document and walk every state", func(t *testing.T) {
		// Arrange
		f := newFixture(t, backup.Policy{}, editor.Options{})

		// Act
		out, err := f.service.Save(operator(), []byte(validPayload))

		// Assert
		require.NoError(t, err)
		assert.True(t, out.Saved())
		assert.Equal(t, []editor.State{
			editor.StateIdle, editor.StateDecoding, editor.StateValidating,
			editor.StateBackingUp, editor.StateWriting, editor.StateDone,
		}, out.Trace)
		assert.NotEmpty(t, out.SaveID)
		assert.Equal(t, editor.MessageSaved, out.Message())

		doc, err := menu.NewCodec(0).Decode([]byte(f.stored(t)))
		require.NoError(t, err)
		assert.True(t, doc.Equal(out.Document))
		assert.Equal(t, []string{"main", "footer"}, doc.Names())
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Saves.WithLabelValues("done")))
	})

	t.Run("Should leave the stored document untouched for malformed payloads", func(t *testing.T) {
		f := newFixture(t, backup.Policy{Enabled: true, Folder: backupFolder, Keep: 3}, editor.Options{})

		out, err := f.service.Save(operator(), []byte(`{"main":[{"label":`))

		assert.True(t, apperrors.IsMalformedPayload(err))
		assert.Equal(t, editor.StateRejected, out.State)
		assert.Equal(t, editor.MessageRejected, out.Message())
		assert.Equal(t, stored, f.stored(t))
		_, statErr := f.fs.Stat(backupFolder)
		assert.Error(t, statErr, "rejected saves take no backup")
	})

	t.Run("Should reject documents that cannot be stored", func(t *testing.T) {
		cases := map[string]string{
			"nested attribute": `{"main":[{"label":{"en":"Home"}}]}`,
			"too deep":         `{"main":[{"submenu":[{"submenu":[{"label":"x"}]}]}]}`,
			"not a document":   `"main"`,
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				f := newFixture(t, backup.Policy{}, editor.Options{MaxDepth: 2})

				out, err := f.service.Save(operator(), []byte(payload))

				assert.True(t, apperrors.IsValidationFailed(err), "got %v", err)
				assert.Equal(t, editor.StateRejected, out.State)
				assert.Equal(t, stored, f.stored(t))
			})
		}
	})

	t.Run("Should reject oversized payloads", func(t *testing.T) {
		f := newFixture(t, backup.Policy{}, editor.Options{MaxPayloadBytes: 16})

		out, err := f.service.Save(operator(), []byte(validPayload))

		assert.True(t, apperrors.IsValidationFailed(err))
		assert.Equal(t, []editor.State{editor.StateIdle, editor.StateDecoding, editor.StateRejected}, out.Trace)
	})

	t.Run("Should deny callers without the permission before decoding", func(t *testing.T) {
		f := newFixture(t, backup.Policy{Enabled: true, Folder: backupFolder, Keep: 3}, editor.Options{})
		ctx := auth.WithPrincipal(context.Background(), &auth.Principal{UserID: "u", Permissions: []string{"files:theme"}})

		out, err := f.service.Save(ctx, []byte(validPayload))

		assert.True(t, apperrors.IsPermissionDenied(err))
		assert.Nil(t, out)
		assert.Equal(t, stored, f.stored(t))

		_, err = f.service.Save(context.Background(), []byte(validPayload))
		assert.True(t, apperrors.IsPermissionDenied(err))
	})

	t.Run("Should not create a backup folder when backups are disabled", func(t *testing.T) {
		f := newFixture(t, backup.Policy{Enabled: false, Folder: backupFolder, Keep: 3}, editor.Options{})

		out, err := f.service.Save(operator(), []byte(validPayload))

		require.NoError(t, err)
		assert.Nil(t, out.Backup)
		_, statErr := f.fs.Stat(backupFolder)
		assert.Error(t, statErr)
	})

	t.Run("Should snapshot the previous document and keep the newest", func(t *testing.T) {
		f := newFixture(t, backup.Policy{Enabled: true, Folder: backupFolder, Keep: 2}, editor.Options{})

		var last *editor.Outcome
		for i := 0; i < 4; i++ {
			out, err := f.service.Save(operator(), []byte(validPayload))
			require.NoError(t, err)
			require.NoError(t, out.BackupErr)
			last = out
		}

		records, err := f.service.Backups(operator())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, last.Backup.Name, records[0].Name)
		assert.Equal(t, "menu.1700000004.yml", records[0].Name)
		assert.Equal(t, "menu.1700000003.yml", records[1].Name)

		first, err := util.ReadFile(f.fs, backupFolder+"/menu.1700000004.yml")
		require.NoError(t, err)
		assert.NotEqual(t, stored, string(first))
	})
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, data []byte) error {
	return m.Called(ctx, data).Error(0)
}

func (m *mockStore) Location() string { return "config://menu.yml" }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, events ...messaging.MenuSaved) error {
	return m.Called(ctx, events).Error(0)
}

func TestService_SaveFailures(t *testing.T) {
	policy := backup.Policy{Enabled: true, Folder: backupFolder, Keep: 3}

	t.Run("Should save even when the backup fails", func(t *testing.T) {
		// Arrange
		store := new(mockStore)
		store.On("Get", mock.Anything).Return(nil, errors.New("throttled"))
		store.On("Put", mock.Anything, mock.Anything).Return(nil)
		rotator := backup.NewRotator(memfs.New(), policy, zap.NewNop())
		svc := editor.NewService(store, rotator, nil, nil, zap.NewNop(), editor.Options{})

		// Act
		out, err := svc.Save(operator(), []byte(validPayload))

		// Assert
		require.NoError(t, err)
		assert.True(t, out.Saved())
		assert.True(t, apperrors.IsBackupFailed(out.BackupErr))
		store.AssertCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("Should skip the backup when nothing is stored yet", func(t *testing.T) {
		store := new(mockStore)
		store.On("Get", mock.Anything).Return(nil, storage.ErrNotFound)
		store.On("Put", mock.Anything, mock.Anything).Return(nil)
		fs := memfs.New()
		svc := editor.NewService(store, backup.NewRotator(fs, policy, zap.NewNop()), nil, nil, zap.NewNop(), editor.Options{})

		out, err := svc.Save(operator(), []byte(validPayload))

		require.NoError(t, err)
		assert.Nil(t, out.Backup)
		assert.NoError(t, out.BackupErr)
	})

	t.Run("Should surface storage write failures", func(t *testing.T) {
		store := new(mockStore)
		store.On("Put", mock.Anything, mock.Anything).Return(errors.New("read-only filesystem"))
		svc := editor.NewService(store, backup.NewRotator(memfs.New(), backup.Policy{}, zap.NewNop()), nil, nil, zap.NewNop(), editor.Options{})

		out, err := svc.Save(operator(), []byte(validPayload))

		assert.True(t, apperrors.IsStorageWriteFailed(err))
		assert.Equal(t, editor.StateFailed, out.State)
		assert.False(t, out.Saved())
		assert.Equal(t, editor.MessageFailed, out.Message())
	})

	t.Run("Should publish a saved event and tolerate publisher errors", func(t *testing.T) {
		store := new(mockStore)
		store.On("Put", mock.Anything, mock.Anything).Return(nil)
		pub := new(mockPublisher)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(events []messaging.MenuSaved) bool {
			return len(events) == 1 && events[0].UserID == "op-1" && events[0].Items == 2
		})).Return(errors.New("bus down"))
		metrics := observability.NewCollector("test")
		svc := editor.NewService(store, backup.NewRotator(memfs.New(), backup.Policy{}, zap.NewNop()), pub, metrics, zap.NewNop(), editor.Options{})

		out, err := svc.Save(operator(), []byte(validPayload))

		require.NoError(t, err)
		assert.True(t, out.Saved())
		pub.AssertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsDropped))
	})
}

func TestService_Restore(t *testing.T) {
	t.Run("Should restore a snapshot and back up the replaced document", func(t *testing.T) {
		// Arrange
		f := newFixture(t, backup.Policy{Enabled: true, Folder: backupFolder, Keep: 5}, editor.Options{})
		saved, err := f.service.Save(operator(), []byte(validPayload))
		require.NoError(t, err)

		// Act
		out, err := f.service.Restore(operator(), saved.Backup.Name)

		// Assert
		require.NoError(t, err)
		assert.True(t, out.Saved())
		assert.Equal(t, stored, f.stored(t))
		records, err := f.service.Backups(operator())
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Should report unknown snapshots", func(t *testing.T) {
		f := newFixture(t, backup.Policy{Enabled: true, Folder: backupFolder, Keep: 5}, editor.Options{})

		_, err := f.service.Restore(operator(), "menu.1.yml")

		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_Page(t *testing.T) {
	t.Run("Should default the editor configuration", func(t *testing.T) {
		f := newFixture(t, backup.Policy{}, editor.Options{})

		page, err := f.service.Page(operator())

		require.NoError(t, err)
		assert.Equal(t, []string{"main"}, page.Menus.Names())
		assert.Equal(t, []config.EditorField{}, page.Config.Fields)
		assert.False(t, page.Config.Backups.Enabled)
		assert.Equal(t, editor.Entry{Label: "Menu Editor", Icon: "fa:bars", Permission: "files:config"}, page.Entry)
	})

	t.Run("Should show an empty document when nothing is stored", func(t *testing.T) {
		store := new(mockStore)
		store.On("Get", mock.Anything).Return(nil, storage.ErrNotFound)
		svc := editor.NewService(store, backup.NewRotator(memfs.New(), backup.Policy{}, zap.NewNop()), nil, nil, zap.NewNop(),
			editor.Options{Fields: []config.EditorField{{Name: "title", Label: "Title"}}})

		page, err := svc.Page(operator())

		require.NoError(t, err)
		assert.Empty(t, page.Menus.Names())
		assert.Len(t, page.Config.Fields, 1)
	})

	t.Run("Should require the permission", func(t *testing.T) {
		f := newFixture(t, backup.Policy{}, editor.Options{})

		_, err := f.service.Page(context.Background())

		assert.True(t, apperrors.IsPermissionDenied(err))
	})
}
