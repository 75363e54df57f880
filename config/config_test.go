package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.GetAPIBaseURL())
	assert.Equal(t, "/api", cfg.GetDevProxyPath())
	assert.Equal(t, yayasan.DefaultRequestTimeout, cfg.GetRequestTimeout())
	assert.Equal(t, ":3000", cfg.Web.Addr)
	assert.Equal(t, "yayasan_sid", cfg.Web.CookieName)
	assert.Equal(t, 12*time.Hour, cfg.Web.SessionTTL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, yayasan.DefaultGuardRoutes(), cfg.GuardRoutes())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yayasan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.yayasan.sch.id
  timeout: 10s
web:
  addr: ":8080"
  cookie_secure: true
store:
  driver: sqlite
  dsn: file:test.db
routes:
  admin_login: /panel/masuk
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.yayasan.sch.id", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.True(t, cfg.Web.CookieSecure)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/panel/masuk", cfg.GuardRoutes().AdminLogin)
	assert.Equal(t, "/login", cfg.GuardRoutes().ApplicantLogin)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("YAYASAN_API_BASE_URL", "https://backend.example.org")
	t.Setenv("YAYASAN_STORE_DRIVER", "redis")
	t.Setenv("YAYASAN_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example.org", cfg.GetAPIBaseURL())
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("YAYASAN_STORE_DRIVER", "etcd")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestLoadRejectsShortCSRFKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("YAYASAN_WEB_CSRF_KEY", "too-short")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web.csrf_key")
}
