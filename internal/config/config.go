package config

import (
	"errors"
	"inkblog/internal/config/hook"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	App struct {
		Env string
	}

	HTTP struct {
		Port uint16
	}

	Storage struct {
		PostgresDSN     string        `mapstructure:"postgres_dsn"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	}

	Logging struct {
		Level zapcore.Level
	}

	Session struct {
		Secret string
	}

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	}

	Cursor struct {
		Secret string
	}

	Comments struct {
		DefaultLimit  int `mapstructure:"default_limit"`
		MaxLimit      int `mapstructure:"max_limit"`
		MaxBodyLength int `mapstructure:"max_body_length"`
	}

	Redis struct {
		Addr           string
		Password       string
		DB             int
		IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	}

	Kafka struct {
		Brokers []string
		Topic   string
		Async   bool
	}

	Otel struct {
		Endpoint    string
		ServiceName string  `mapstructure:"service_name"`
		SampleRatio float64 `mapstructure:"sample_ratio"`
	}
}

// IsProduction 生产环境下 cookie 走 Secure，gin 走 ReleaseMode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Read loads config.yaml (optional) from the working directory and lets
// INKBLOG_* environment variables override every key.
func Read() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	configureEnv(v)
	configureLocation(v)
	return readUnmarshalConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("http.port", 8080)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.max_open_conns", 40)
	v.SetDefault("storage.max_idle_conns", 10)
	v.SetDefault("storage.conn_max_lifetime", "30m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("session.secret", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("cursor.secret", "")
	v.SetDefault("comments.default_limit", 10)
	v.SetDefault("comments.max_limit", 100)
	v.SetDefault("comments.max_body_length", 5000)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl", "24h")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "comment-events")
	v.SetDefault("kafka.async", false)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "inkblog")
	v.SetDefault("otel.sample_ratio", 1.0)
}

func configureEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("inkblog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func configureLocation(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
}

func readUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	c := &Config{}
	if err := v.Unmarshal(c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		hook.Level(),
	))); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Storage.PostgresDSN == "" {
		return errors.New("config: storage.postgres_dsn is required")
	}
	if c.Cursor.Secret == "" {
		return errors.New("config: cursor.secret is required")
	}
	if c.Session.Secret == "" {
		return errors.New("config: session.secret is required")
	}
	if c.Comments.DefaultLimit < 1 || c.Comments.DefaultLimit > c.Comments.MaxLimit {
		return errors.New("config: comments.default_limit must be within 1..comments.max_limit")
	}
	return nil
}
