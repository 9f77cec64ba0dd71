package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from files and environment variables.
type Loader struct {
	// basePath is the directory holding base.yaml and the environment files.
	basePath string

	environment Environment

	// sources tracks where configuration was loaded from.
	sources []string

	// fileLoaders are tried in order for every file name.
	fileLoaders []FileLoader

	// getenv is os.Getenv outside tests.
	getenv func(string) string
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}

	loader := &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
		getenv:      os.Getenv,
	}
	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	return loader
}

// RegisterLoader adds a file format.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders = append(l.fileLoaders, loader)
}

// WithEnv replaces the environment lookup.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// Load builds the configuration. The loading order, lowest priority first:
//  1. Default values (in code)
//  2. base.yaml
//  3. {environment}.yaml
//  4. local.yaml (development only)
//  5. Environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	// Files may not change the environment the loader was created for.
	cfg.Environment = l.environment
	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads name.<ext> for the first registered extension that exists.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, fmt.Sprintf("%s.%s", name, loader.Extension()))

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		err = loader.Load(file, cfg)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

// loadEnvironmentVariables overlays environment variables on the configuration.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	setString := func(key string, target *string) {
		if val := l.getenv(key); val != "" {
			*target = val
		}
	}
	setInt := func(key string, target *int) {
		if val := l.getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*target = n
			}
		}
	}
	setBool := func(key string, target *bool) {
		if val := l.getenv(key); val != "" {
			*target = parseBool(val)
		}
	}
	setDuration := func(key string, target *time.Duration) {
		if val := l.getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*target = d
			}
		}
	}

	// Server
	setString("SERVER_HOST", &cfg.Server.Host)
	setInt("SERVER_PORT", &cfg.Server.Port)
	setDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	if val := l.getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}

	// Storage
	setString("STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("STORAGE_ROOT", &cfg.Storage.Root)
	setString("MENU_FILE", &cfg.Storage.MenuFile)
	setString("SITE_CONFIG_DIR", &cfg.Storage.SiteConfigDir)
	setString("TABLE_NAME", &cfg.Storage.TableName)
	setString("AWS_REGION", &cfg.Storage.Region)

	// Menu
	setInt("MENU_MAX_DEPTH", &cfg.Menu.MaxDepth)
	if val := l.getenv("MENU_MAX_PAYLOAD_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Menu.MaxPayloadBytes = n
		}
	}

	// Backups
	setBool("BACKUPS_ENABLED", &cfg.Backups.Enabled)
	setString("BACKUPS_FOLDER", &cfg.Backups.Folder)
	setInt("BACKUPS_KEEP", &cfg.Backups.Keep)
	setString("BACKUPS_COLLISION", &cfg.Backups.Collision)

	// Search
	setString("SEARCH_INDEX_DSN", &cfg.Search.IndexDSN)

	// Security
	setBool("ENABLE_AUTH", &cfg.Security.EnableAuth)
	setString("JWT_SECRET", &cfg.Security.JWTSecret)
	setString("JWT_ISSUER", &cfg.Security.JWTIssuer)
	setString("FLASH_KEY", &cfg.Security.FlashKey)

	// Observability
	setBool("ENABLE_METRICS", &cfg.Metrics.Enabled)
	setInt("METRICS_PORT", &cfg.Metrics.Port)
	setBool("ENABLE_TRACING", &cfg.Tracing.Enabled)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	// Events
	setBool("ENABLE_EVENTS", &cfg.Events.Enabled)
	setString("EVENTS_PROVIDER", &cfg.Events.Provider)
	setString("EVENT_BUS_NAME", &cfg.Events.EventBusName)
}

// Defaults returns the configuration used when no file or variable overrides it.
func Defaults(env Environment) *Config {
	cfg := &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			AllowedOrigins:  []string{"*"},
			BasePath:        "/extend/menueditor",
		},
		Storage: Storage{
			Driver:        DriverFile,
			Root:          "app/config",
			MenuFile:      "menu.yml",
			SiteConfigDir: "app/config",
			Region:        "us-east-1",
		},
		Menu: Menu{
			MaxDepth:        9999,
			MaxPayloadBytes: 1 << 20,
			Fields:          []EditorField{},
		},
		Backups: Backups{
			Enabled:   false,
			Folder:    "menu-backups",
			Keep:      10,
			Collision: "overwrite",
		},
		Search: Search{
			IndexDSN:       "file:content.db?mode=ro",
			MaxQueryLength: 256,
		},
		Security: Security{
			EnableAuth: true,
			JWTIssuer:  "menueditor",
			JWTExpiry:  8 * time.Hour,
			Permission: "files:config",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "menueditor",
			Path:      "/metrics",
			Port:      0,
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "menueditor-backend",
			SampleRate:  0.1,
		},
		Events: Events{
			Enabled:  false,
			Provider: "log",
			Source:   "menueditor",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		CircuitBreaker: CircuitBreaker{
			Enabled:         true,
			MaxRequests:     3,
			Interval:        10 * time.Second,
			Timeout:         30 * time.Second,
			FailureRatio:    0.6,
			MinimumRequests: 5,
		},
	}

	switch env {
	case Development:
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		cfg.Security.EnableAuth = false
		cfg.Tracing.SampleRate = 1.0
	case Production:
		cfg.Server.AllowedOrigins = []string{}
	}
	return cfg
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	err := yaml.NewDecoder(reader).Decode(target)
	if err == io.EOF {
		return nil
	}
	return err
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load loads configuration for the environment named by ENVIRONMENT from the
// directory named by CONFIG_DIR (default "config").
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	return NewLoader(dir, getEnvironment()).Load()
}

// MustLoad loads configuration and panics on error. Use this only in main().
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
