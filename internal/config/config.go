package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is loaded once from the environment. Redis is optional: an
// empty WHNOTIFY_REDIS_URL runs the broker single-instance.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Client ClientConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type RedisConfig struct {
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
}

// ClientConfig configures the notifytail consumer.
type ClientConfig struct {
	BrokerURL string
	AuthURL   string
}

type LogConfig struct {
	Level string
}

var (
	instance *Config
	once     sync.Once
)

// Load reads configuration from the environment with defaults suitable
// for local development.
func Load() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("WHNOTIFY_HOST", "")
		viper.SetDefault("WHNOTIFY_PORT", "8080")
		viper.SetDefault("WHNOTIFY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("WHNOTIFY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("WHNOTIFY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("WHNOTIFY_ALLOWED_ORIGINS", []string{})
		viper.SetDefault("WHNOTIFY_JWT_SECRET", "secret")
		viper.SetDefault("WHNOTIFY_LOG_LEVEL", "info")
		viper.SetDefault("WHNOTIFY_REDIS_URL", "")
		viper.SetDefault("WHNOTIFY_REDIS_MAX_RETRIES", 3)
		viper.SetDefault("WHNOTIFY_REDIS_POOL_SIZE", 100)
		viper.SetDefault("WHNOTIFY_REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("WHNOTIFY_REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("WHNOTIFY_REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("WHNOTIFY_REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.SetDefault("WHNOTIFY_BROKER_URL", "ws://localhost:8080/ws")
		viper.SetDefault("WHNOTIFY_AUTH_URL", "http://localhost:8080/broker/auth")
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Host:           viper.GetString("WHNOTIFY_HOST"),
				Port:           viper.GetString("WHNOTIFY_PORT"),
				ReadTimeout:    viper.GetDuration("WHNOTIFY_READ_TIMEOUT"),
				WriteTimeout:   viper.GetDuration("WHNOTIFY_WRITE_TIMEOUT"),
				IdleTimeout:    viper.GetDuration("WHNOTIFY_IDLE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("WHNOTIFY_ALLOWED_ORIGINS"),
			},
			Redis: RedisConfig{
				URL:          viper.GetString("WHNOTIFY_REDIS_URL"),
				MaxRetries:   viper.GetInt("WHNOTIFY_REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("WHNOTIFY_REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("WHNOTIFY_REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("WHNOTIFY_REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("WHNOTIFY_REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("WHNOTIFY_REDIS_MIN_IDLE_CONNS"),
			},
			JWT: JWTConfig{
				Secret: viper.GetString("WHNOTIFY_JWT_SECRET"),
			},
			Client: ClientConfig{
				BrokerURL: viper.GetString("WHNOTIFY_BROKER_URL"),
				AuthURL:   viper.GetString("WHNOTIFY_AUTH_URL"),
			},
			Log: LogConfig{
				Level: viper.GetString("WHNOTIFY_LOG_LEVEL"),
			},
		}
	})

	return instance, nil
}
