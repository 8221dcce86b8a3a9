package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/ClarkHamofares/chat-app/pkg/config"
	"github.com/ClarkHamofares/chat-app/pkg/database"
	"github.com/ClarkHamofares/chat-app/pkg/log"
	"github.com/ClarkHamofares/chat-app/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	Metrics   MetricsConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Database  database.Config
	Cache     CacheConfig
	Events    EventsConfig
	Storage   StorageConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Issuer          string        `mapstructure:"issuer"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	TokenQueryParam string        `mapstructure:"token_query_param"`
}

type CacheConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	Enabled bool
	Brokers string
	Topic   string
}

type StorageConfig struct {
	Backend string // "local" or "s3"
	Local   storage.LocalConfig
	S3      storage.S3Config
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Numeric and duration values come in as strings from env overrides
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Auth.TokenTTL = parseDuration(v, "auth.token_ttl", 24*time.Hour)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 5*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	// WebSocket
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "chat-app")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.token_query_param", "token")

	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "chat.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)

	// Cache
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "5s")

	// Events
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", "localhost:9092")
	v.SetDefault("events.topic", "chat-messages")

	// Storage
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_path", "./uploads")
	v.SetDefault("storage.local.url_base", "/media")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chat-app")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("cache.address", "REDIS_ADDRESS")
	v.BindEnv("cache.password", "REDIS_PASSWORD")
	v.BindEnv("events.brokers", "KAFKA_BROKERS")
	v.BindEnv("events.topic", "KAFKA_TOPIC")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// Validate checks invariants the rest of the process relies on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if c.Auth.TokenQueryParam == "" {
		return errors.New("auth.token_query_param must be configured")
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		return errors.New("websocket ping interval must be less than pong wait")
	}
	if c.WebSocket.SendBuffer < 1 {
		return errors.New("websocket send buffer must be positive")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.BasePath == "" {
			return errors.New("storage.local.base_path must be set for local backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket must be set for s3 backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s. Must be 'local' or 's3'", c.Storage.Backend)
	}
	if c.Events.Enabled && c.Events.Brokers == "" {
		return errors.New("events.brokers must be set when events are enabled")
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return errors.New("cache.address must be set when cache is enabled")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
