package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds all configuration for certificate-studio
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Store    StoreConfig    `envPrefix:"STORE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Cleanup  CleanupConfig  `envPrefix:"CLEANUP_"`
	Log      LogConfig      `envPrefix:"LOG_"`
	Data     DataConfig
	Render   RenderConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Address returns host:port
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DataConfig locates the data documents and page artwork
type DataConfig struct {
	Source          string `env:"DATA_SOURCE" envDefault:"./data"`
	AssetsDir       string `env:"ASSETS_DIR" envDefault:"./assets"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"ru"`
}

// StoreConfig selects the durable preference store
type StoreConfig struct {
	Driver string `env:"DRIVER" envDefault:"memory"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string `env:"ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"certstudio"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN      string `env:"DSN"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
}

// SessionConfig holds per-profile session configuration
type SessionConfig struct {
	IdleTTL time.Duration `env:"IDLE_TTL" envDefault:"30m"`
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"5m"`
}

// RenderConfig holds export rasterization settings
type RenderConfig struct {
	Scale       float64 `env:"RENDER_SCALE" envDefault:"4"`
	JPEGQuality int     `env:"JPEG_QUALITY" envDefault:"80"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom loads configuration from the given variables instead of the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&c.Server.RequestTimeout, validation.Min(time.Second)),
		),
		"data": validation.ValidateStruct(&c.Data,
			validation.Field(&c.Data.Source, validation.Required),
			validation.Field(&c.Data.DefaultLanguage, validation.Required),
		),
		"store": validation.ValidateStruct(&c.Store,
			validation.Field(&c.Store.Driver, validation.In(StoreMemory, StoreRedis, StorePostgres)),
		),
		"redis": validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Address, validation.When(c.Store.Driver == StoreRedis, validation.Required)),
			validation.Field(&c.Redis.DB, validation.Min(0)),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.DSN, validation.When(c.Store.Driver == StorePostgres, validation.Required)),
			validation.Field(&c.Database.MaxConns, validation.Min(int32(1))),
		),
		"session": validation.ValidateStruct(&c.Session,
			validation.Field(&c.Session.IdleTTL, validation.Min(time.Minute)),
		),
		"render": validation.ValidateStruct(&c.Render,
			validation.Field(&c.Render.Scale, validation.Min(0.5), validation.Max(8.0)),
			validation.Field(&c.Render.JPEGQuality, validation.Min(1), validation.Max(100)),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
			validation.Field(&c.Log.Format, validation.In(LogFormatJSON, LogFormatText)),
		),
	}.Filter()
}
