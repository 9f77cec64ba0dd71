package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete service configuration.
type Config struct {
	Environment    Environment    `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Server         Server         `yaml:"server" json:"server"`
	Storage        Storage        `yaml:"storage" json:"storage"`
	Menu           Menu           `yaml:"menu" json:"menu"`
	Backups        Backups        `yaml:"backups" json:"backups"`
	Search         Search         `yaml:"search" json:"search"`
	Security       Security       `yaml:"security" json:"security"`
	Metrics        Metrics        `yaml:"metrics" json:"metrics"`
	Tracing        Tracing        `yaml:"tracing" json:"tracing"`
	Events         Events         `yaml:"events" json:"events"`
	Logging        Logging        `yaml:"logging" json:"logging"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker" json:"circuit_breaker"`

	// LoadedFrom lists the sources applied, in order.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins"`
	BasePath        string        `yaml:"base_path" json:"base_path"`
}

// Address returns the listen address.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Storage drivers.
const (
	DriverFile     = "file"
	DriverDynamoDB = "dynamodb"
)

// Storage selects where the menu document and site configuration live.
type Storage struct {
	Driver        string `yaml:"driver" json:"driver" validate:"oneof=file dynamodb"`
	Root          string `yaml:"root" json:"root" validate:"required"`
	MenuFile      string `yaml:"menu_file" json:"menu_file" validate:"required"`
	SiteConfigDir string `yaml:"site_config_dir" json:"site_config_dir"`
	TableName     string `yaml:"table_name" json:"table_name" validate:"required_if=Driver dynamodb"`
	Region        string `yaml:"region" json:"region"`
}

// EditorField is an extra item attribute offered by the editor.
type EditorField struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Label string `yaml:"label" json:"label"`
}

// Menu bounds what a save accepts.
type Menu struct {
	MaxDepth        int           `yaml:"max_depth" json:"max_depth" validate:"min=1"`
	MaxPayloadBytes int64         `yaml:"max_payload_bytes" json:"max_payload_bytes" validate:"min=1"`
	Fields          []EditorField `yaml:"fields" json:"fields" validate:"dive"`
}

// Backups configures snapshots of the previous document.
type Backups struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Folder    string `yaml:"folder" json:"folder,omitempty" validate:"required_if=Enabled true"`
	Keep      int    `yaml:"keep" json:"keep,omitempty" validate:"min=0"`
	Collision string `yaml:"collision" json:"collision,omitempty" validate:"omitempty,oneof=overwrite suffix"`
}

// Search configures the content index behind the picker.
type Search struct {
	IndexDSN       string `yaml:"index_dsn" json:"index_dsn"`
	MaxQueryLength int    `yaml:"max_query_length" json:"max_query_length" validate:"min=1"`
}

// Security configures authentication.
type Security struct {
	EnableAuth bool          `yaml:"enable_auth" json:"enable_auth"`
	JWTSecret  string        `yaml:"jwt_secret" json:"-"`
	JWTIssuer  string        `yaml:"jwt_issuer" json:"jwt_issuer"`
	JWTExpiry  time.Duration `yaml:"jwt_expiry" json:"jwt_expiry"`
	Permission string        `yaml:"permission" json:"permission" validate:"required"`
	FlashKey   string        `yaml:"flash_key" json:"-"`
}

// Metrics configures the prometheus endpoint.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
	Path      string `yaml:"path" json:"path" validate:"required,startswith=/"`
	Port      int    `yaml:"port" json:"port" validate:"min=0,max=65535"`
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name" validate:"required"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint" validate:"required_if=Enabled true"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" validate:"min=0,max=1"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
}

// Events configures the saved-menu event publisher.
type Events struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Provider     string `yaml:"provider" json:"provider" validate:"oneof=eventbridge log"`
	EventBusName string `yaml:"event_bus_name" json:"event_bus_name" validate:"required_if=Provider eventbridge"`
	Source       string `yaml:"source" json:"source" validate:"required"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
}

// CircuitBreaker configures the breaker in front of the content index.
type CircuitBreaker struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	MaxRequests     uint32        `yaml:"max_requests" json:"max_requests"`
	Interval        time.Duration `yaml:"interval" json:"interval"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	FailureRatio    float64       `yaml:"failure_ratio" json:"failure_ratio" validate:"min=0,max=1"`
	MinimumRequests uint32        `yaml:"minimum_requests" json:"minimum_requests"`
}

var validate = validator.New()

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Backups.Enabled && c.Backups.Keep < 1 {
		return fmt.Errorf("invalid configuration: backups.keep must be at least 1 when backups are enabled")
	}
	if c.Security.EnableAuth && c.Security.JWTSecret == "" {
		return fmt.Errorf("invalid configuration: security.jwt_secret is required when auth is enabled")
	}
	if c.Environment == Production && c.Security.EnableAuth && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("invalid configuration: security.jwt_secret must be at least 32 characters in production")
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// IsDevelopment reports whether the service runs in development.
func (c *Config) IsDevelopment() bool { return c.Environment == Development }

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool { return c.Environment == Production }

func getEnvironment() Environment {
	return ParseEnvironment(os.Getenv("ENVIRONMENT"))
}

// ParseEnvironment maps a name to an Environment. Unknown names are
// development.
func ParseEnvironment(name string) Environment {
	switch Environment(strings.ToLower(name)) {
	case Production:
		return Production
	case Staging:
		return Staging
	default:
		return Development
	}
}
