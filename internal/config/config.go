package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUnifyBaseURL   = "https://api.unify.autostoresystem.com/v1"
	DefaultUnifyStreamURL = "https://live.unify.autostoresystem.com/connect"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Live      LiveConfig      `mapstructure:"live"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type AuthConfig struct {
	JWTSecret         string       `mapstructure:"jwt_secret"`
	SessionTTLMinutes int          `mapstructure:"session_ttl_minutes"`
	CookieSecure      bool         `mapstructure:"cookie_secure"`
	Users             []UserConfig `mapstructure:"users"`
}

// UserConfig declares a dashboard login that lives only in memory.
type UserConfig struct {
	ID       string `mapstructure:"id"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr             string `mapstructure:"addr"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	RevocationPrefix string `mapstructure:"revocation_prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	StreamURL      string `mapstructure:"stream_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 0 keeps the transport default (no deadline)
	EnforceCatalog bool   `mapstructure:"enforce_catalog"`
}

type SecurityConfig struct {
	// TokenKey is an age X25519 identity (AGE-SECRET-KEY-1...). Empty stores tokens in clear.
	TokenKey string `mapstructure:"token_key"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type LiveConfig struct {
	BufferSize       int  `mapstructure:"buffer_size"`
	SubscriberBuffer int  `mapstructure:"subscriber_buffer"`
	RelayUpstream    bool `mapstructure:"relay_upstream"` // copy Unify live streams into the feed
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func (c AuthConfig) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c UpstreamConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. UNIFYGATE_AUTH_JWT_SECRET
	viper.SetEnvPrefix("unifygate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.session_ttl_minutes", 1440)
	viper.SetDefault("auth.cookie_secure", false)
	viper.SetDefault("redis.revocation_prefix", "session:revoked:")
	viper.SetDefault("kafka.topic", "unify.api_requests")
	viper.SetDefault("upstream.base_url", DefaultUnifyBaseURL)
	viper.SetDefault("upstream.stream_url", DefaultUnifyStreamURL)
	viper.SetDefault("upstream.timeout_seconds", 0)
	viper.SetDefault("upstream.enforce_catalog", false)
	viper.SetDefault("rate_limit.qps", 10)
	viper.SetDefault("rate_limit.burst", 20)
	viper.SetDefault("live.buffer_size", 100)
	viper.SetDefault("live.subscriber_buffer", 32)
	viper.SetDefault("live.relay_upstream", false)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
