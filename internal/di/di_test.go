package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menueditor-backend/internal/config"
	"menueditor-backend/pkg/api"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults(config.Development)
	cfg.Storage.Root = t.TempDir()
	cfg.Storage.SiteConfigDir = t.TempDir()
	cfg.Search.IndexDSN = ":memory:"
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	cfg.Backups.Enabled = true
	cfg.Backups.Keep = 3
	return cfg
}

func TestInitializeContainerIntegration(t *testing.T) {
	// Arrange
	cfg := testConfig(t)
	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, container.Router)

	t.Run("Should serve the health check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})

	t.Run("Should save through the full stack", func(t *testing.T) {
		// Act
		form := url.Values{api.MenusField: {`{"main":[{"label":"Home","link":"/"}]}`}}
		req := httptest.NewRequest(http.MethodPost, cfg.Server.BasePath, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		container.Router.ServeHTTP(rec, req)

		// Assert
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data, err := os.ReadFile(filepath.Join(cfg.Storage.Root, cfg.Storage.MenuFile))
		require.NoError(t, err)
		assert.Contains(t, string(data), "label: Home")
	})

	t.Run("Should search an empty index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.Server.BasePath+"/search?q=home", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("Should expose metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		container.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "menueditor_menu_saves_total")
	})
}

func TestInitializeTools(t *testing.T) {
	cfg := testConfig(t)

	tools, cleanup, err := InitializeTools(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "config://"+cfg.Storage.MenuFile, tools.Store.Location())
	assert.True(t, tools.Rotator.Policy().Enabled)
}

func TestColdStartTracker(t *testing.T) {
	tracker := NewColdStartTracker()

	cold, _ := tracker.Observe()
	assert.True(t, cold)
	cold, since := tracker.Observe()
	assert.False(t, cold)
	assert.GreaterOrEqual(t, since.Nanoseconds(), int64(0))
}
