// Package config loads the yayasan client and web front configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-yayasan"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. YAYASAN_API_BASE_URL
const EnvPrefix = "YAYASAN"

// Config represents the complete configuration
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Web    WebConfig    `mapstructure:"web"`
	Store  StoreConfig  `mapstructure:"store"`
	Routes RoutesConfig `mapstructure:"routes"`
	Log    LogConfig    `mapstructure:"log"`
}

// APIConfig locates the backend
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	DevProxyPath string        `mapstructure:"dev_proxy_path"`
	Host         string        `mapstructure:"host"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// WebConfig configures the server rendered front
type WebConfig struct {
	Addr         string        `mapstructure:"addr"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	// CSRFKey signs form tokens, a random key is used when empty
	CSRFKey string `mapstructure:"csrf_key"`
}

// StoreConfig selects the token store backend
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	DSN       string `mapstructure:"dsn"`
	RedisAddr string `mapstructure:"redis_addr"`
}

// RoutesConfig holds the guard redirect targets
type RoutesConfig struct {
	AdminLogin     string `mapstructure:"admin_login"`
	ApplicantLogin string `mapstructure:"applicant_login"`
	Home           string `mapstructure:"home"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var _ yayasan.Config = &Config{}

func (c *Config) GetAPIBaseURL() string            { return c.API.BaseURL }
func (c *Config) GetDevProxyPath() string          { return c.API.DevProxyPath }
func (c *Config) GetHost() string                  { return c.API.Host }
func (c *Config) GetRequestTimeout() time.Duration { return c.API.Timeout }

// GuardRoutes returns the configured redirect targets
func (c *Config) GuardRoutes() yayasan.GuardRoutes {
	return yayasan.GuardRoutes{
		AdminLogin:     c.Routes.AdminLogin,
		ApplicantLogin: c.Routes.ApplicantLogin,
		Home:           c.Routes.Home,
	}
}

// Load reads configuration from the given file (optional), then applies
// environment overrides
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("yayasan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/yayasan")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.dev_proxy_path", yayasan.DefaultDevProxyPath)
	v.SetDefault("api.host", "")
	v.SetDefault("api.timeout", yayasan.DefaultRequestTimeout)

	v.SetDefault("web.addr", ":3000")
	v.SetDefault("web.cookie_name", "yayasan_sid")
	v.SetDefault("web.cookie_secure", false)
	v.SetDefault("web.session_ttl", 12*time.Hour)
	v.SetDefault("web.csrf_key", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("store.dsn", "file:yayasan.db?cache=shared")
	v.SetDefault("store.redis_addr", "localhost:6379")

	v.SetDefault("routes.admin_login", yayasan.DefaultAdminLoginPath)
	v.SetDefault("routes.applicant_login", yayasan.DefaultApplicantLoginPath)
	v.SetDefault("routes.home", yayasan.DefaultHomePath)

	v.SetDefault("log.level", "info")
}

// Validate will validate the configuration
func (c Config) Validate() error {
	return validation.Errors{
		"api.base_url": validation.Validate(c.API.BaseURL, validation.Required, is.URL),
		"api.timeout":  validation.Validate(int64(c.API.Timeout), validation.Min(int64(0))),
		"web.addr":     validation.Validate(c.Web.Addr, validation.Required),
		"web.cookie":   validation.Validate(c.Web.CookieName, validation.Required),
		"web.csrf_key": validation.Validate(c.Web.CSRFKey, validation.Length(32, 0)),
		"store.driver": validation.Validate(c.Store.Driver, validation.In("memory", "file", "sqlite", "redis")),
		"routes.admin": validation.Validate(c.Routes.AdminLogin, validation.Required),
		"routes.home":  validation.Validate(c.Routes.Home, validation.Required),
		"log.level":    validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
	}.Filter()
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "yayasan", "session.json")
	}
	return filepath.Join(".", ".yayasan-session.json")
}
