package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"HTTP_SERVER_PORT"` specify the environment variable name.
type Config struct {
	AppEnv         string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	MigrateOnStart bool   `envconfig:"DB_MIGRATE_ON_START" default:"false"`
	HttpServer     ServerConfig
	GrpcServer     GrpcServerConfig
	Postgres       PostgresConfig
	Session        SessionConfig
	Media          MediaConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	RequestTimeout time.Duration `envconfig:"HTTP_SERVER_REQUEST_TIMEOUT" default:"60s"`
	// MaxUploadBytes caps multipart image uploads.
	MaxUploadBytes int64 `envconfig:"HTTP_MAX_UPLOAD_BYTES" default:"10485760"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details. URL, when set,
// takes precedence over the discrete fields.
type PostgresConfig struct {
	URL      string `envconfig:"DATABASE_URL"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:"marketplace"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	if pc.URL != "" {
		return pc.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	Secret string        `envconfig:"SESSION_SECRET" required:"true"`
	Name   string        `envconfig:"SESSION_NAME" default:"marketplace-session"`
	MaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"168h"`
	Secure bool          `envconfig:"SESSION_SECURE" default:"false"`
}

// Media backends.
const (
	MediaBackendLocal      = "local"
	MediaBackendCloudinary = "cloudinary"
)

// MediaConfig selects where uploaded images are stored.
type MediaConfig struct {
	Backend       string `envconfig:"MEDIA_BACKEND" default:"local"`
	LocalDir      string `envconfig:"MEDIA_LOCAL_DIR" default:"./uploads"`
	PublicPrefix  string `envconfig:"MEDIA_PUBLIC_PREFIX" default:"/media"`
	CloudinaryURL string `envconfig:"CLOUDINARY_URL"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info("Configuration loaded", "app_env", cfg.AppEnv, "media_backend", cfg.Media.Backend)
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("config: SESSION_SECRET must not be empty")
	}
	switch c.Media.Backend {
	case MediaBackendLocal:
	case MediaBackendCloudinary:
		if c.Media.CloudinaryURL == "" {
			return fmt.Errorf("config: CLOUDINARY_URL is required when MEDIA_BACKEND=%s", MediaBackendCloudinary)
		}
	default:
		return fmt.Errorf("config: unknown MEDIA_BACKEND %q", c.Media.Backend)
	}
	if c.Postgres.URL != "" {
		u, err := url.Parse(c.Postgres.URL)
		if err != nil || !strings.HasPrefix(u.Scheme, "postgres") {
			return fmt.Errorf("config: DATABASE_URL must be a postgres:// URL")
		}
	}
	if !strings.HasPrefix(c.Media.PublicPrefix, "/") && !strings.HasPrefix(c.Media.PublicPrefix, "http") {
		return fmt.Errorf("config: MEDIA_PUBLIC_PREFIX must be an absolute path or URL")
	}
	return nil
}
