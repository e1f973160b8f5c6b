package config

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	dbconfig "gatherly/pkg/database"
)

// EnvPrefix prefixes every environment override, e.g. GATHERLY_HTTP_PORT
const EnvPrefix = "GATHERLY"

// Config is the system-wide settings tree
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database" validate:"required"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth" validate:"required"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" validate:"required"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" validate:"required"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Path           string        `mapstructure:"path" yaml:"path" validate:"required"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" validate:"gt=0"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"gte=0"`
}

// WebSocketConfig tunes the live delivery layer
type WebSocketConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	// SendBuffer is the per-connection outbound queue length
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gt=0"`
	// ReaperInterval is how often stale connections are swept
	ReaperInterval time.Duration `mapstructure:"reaper_interval" yaml:"reaper_interval" validate:"gt=0"`
	// IdleTimeout is how long a connection may stay silent before eviction
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"gt=0"`
	// MessageRate caps inbound messages per user per minute
	MessageRate int `mapstructure:"message_rate" yaml:"message_rate" validate:"gt=0"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret" validate:"required,min=16"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

const (
	defaultHTTPHost            = "0.0.0.0"
	defaultHTTPPort            = 8080
	defaultHTTPReadTimeout     = 30 * time.Second
	defaultHTTPWriteTimeout    = 30 * time.Second
	defaultHTTPShutdownTimeout = 10 * time.Second
	defaultDatabasePath        = "./data/gatherly.db"
	defaultMaxConnections      = 10
	defaultBusyTimeout         = 5 * time.Second
	defaultWSWriteTimeout      = 10 * time.Second
	defaultWSSendBuffer        = 100
	defaultReaperInterval      = 30 * time.Second
	defaultIdleTimeout         = 5 * time.Minute
	defaultMessageRate         = 100
	defaultAuthSecret          = "gatherly-development-secret"
	defaultTokenTTL            = 30 * time.Minute
	defaultLogLevel            = "info"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", defaultHTTPHost)
	v.SetDefault("http.port", defaultHTTPPort)
	v.SetDefault("http.read_timeout", defaultHTTPReadTimeout)
	v.SetDefault("http.write_timeout", defaultHTTPWriteTimeout)
	v.SetDefault("http.shutdown_timeout", defaultHTTPShutdownTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.max_connections", defaultMaxConnections)
	v.SetDefault("database.busy_timeout", defaultBusyTimeout)

	v.SetDefault("websocket.write_timeout", defaultWSWriteTimeout)
	v.SetDefault("websocket.send_buffer", defaultWSSendBuffer)
	v.SetDefault("websocket.reaper_interval", defaultReaperInterval)
	v.SetDefault("websocket.idle_timeout", defaultIdleTimeout)
	v.SetDefault("websocket.message_rate", defaultMessageRate)

	v.SetDefault("auth.secret", defaultAuthSecret)
	v.SetDefault("auth.token_ttl", defaultTokenTTL)

	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.json", false)
}

// DefaultConfig returns the built-in settings with no file or
// environment applied
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:            defaultHTTPHost,
			Port:            defaultHTTPPort,
			ReadTimeout:     defaultHTTPReadTimeout,
			WriteTimeout:    defaultHTTPWriteTimeout,
			ShutdownTimeout: defaultHTTPShutdownTimeout,
		},
		Database: DatabaseConfig{
			Path:           defaultDatabasePath,
			MaxConnections: defaultMaxConnections,
			BusyTimeout:    defaultBusyTimeout,
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:   defaultWSWriteTimeout,
			SendBuffer:     defaultWSSendBuffer,
			ReaperInterval: defaultReaperInterval,
			IdleTimeout:    defaultIdleTimeout,
			MessageRate:    defaultMessageRate,
		},
		Auth: AuthConfig{
			Secret:   defaultAuthSecret,
			TokenTTL: defaultTokenTTL,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

// Load reads configuration from the provided file path (if any) and the
// environment. Precedence: environment > file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would fail at runtime
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Address is the host:port the HTTP server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// DatabaseConfig converts the database section to the store configuration
func (c *Config) DatabaseConfig() *dbconfig.Config {
	db := dbconfig.DefaultConfig()
	db.DatabasePath = c.Database.Path
	db.MaxConnections = c.Database.MaxConnections
	db.BusyTimeout = c.Database.BusyTimeout
	return db
}

// Redacted returns a copy safe to print: the auth secret is masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Auth.Secret = "********"
	return &out
}

// WriteYAML renders the redacted configuration in the same layout Load
// reads, so the output can seed a config file
func (c *Config) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(c.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return encoder.Close()
}
