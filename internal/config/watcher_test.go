package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"menueditor-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestSiteWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("Should reload the store after a file change", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		store := config.NewSiteStore(&config.Site{})
		w, err := config.NewSiteWatcher(dir, store, zap.NewNop(), 20*time.Millisecond)
		require.NoError(t, err)
		defer w.Close()

		reloaded := make(chan *config.Site, 1)
		w.OnChange(func(s *config.Site) {
			select {
			case reloaded <- s:
			default:
			}
		})

		// Act
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.ContentTypesFile),
			[]byte("events:\n  name: Events\n"), 0o644))

		// Assert
		select {
		case s := <-reloaded:
			require.Len(t, s.ContentTypes, 1)
			assert.Equal(t, "Events", s.ContentTypes[0].Name)
		case <-time.After(5 * time.Second):
			t.Fatal("site configuration was not reloaded")
		}
		assert.Len(t, store.Site().ContentTypes, 1)
	})

	t.Run("Should keep the previous model when the new file is invalid", func(t *testing.T) {
		dir := t.TempDir()
		previous := &config.Site{ContentTypes: []config.ContentType{{Key: "pages"}}}
		store := config.NewSiteStore(previous)
		w, err := config.NewSiteWatcher(dir, store, zap.NewNop(), 20*time.Millisecond)
		require.NoError(t, err)
		defer w.Close()

		require.NoError(t, os.WriteFile(filepath.Join(dir, config.ContentTypesFile), []byte("- not a mapping\n"), 0o644))
		time.Sleep(200 * time.Millisecond)

		assert.Same(t, previous, store.Site())
	})

	t.Run("Should fail for a missing directory", func(t *testing.T) {
		_, err := config.NewSiteWatcher(filepath.Join(t.TempDir(), "missing"), config.NewSiteStore(nil), zap.NewNop(), 0)
		assert.Error(t, err)
	})

	t.Run("Should allow closing twice", func(t *testing.T) {
		w, err := config.NewSiteWatcher(t.TempDir(), config.NewSiteStore(nil), zap.NewNop(), 0)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})
}
