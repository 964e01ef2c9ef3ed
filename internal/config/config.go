package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr         string
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN      string
		MaxConns int32 `mapstructure:"max_conns"`
	} `mapstructure:"postgres"`

	Redis struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Inventory struct {
		LockTimeout  time.Duration `mapstructure:"lock_timeout"`
		Workers      int
		QueueSize    int `mapstructure:"queue_size"`
		HistoryLimit int `mapstructure:"history_limit"`
	} `mapstructure:"inventory"`
}

// DefaultPath is used when APP_CONFIG is not set.
const DefaultPath = "config/example.yaml"

// Path returns the config file location.
func Path() string {
	if p := os.Getenv("APP_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.ttl", 10*time.Minute)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("inventory.lock_timeout", 3*time.Second)
	v.SetDefault("inventory.workers", 8)
	v.SetDefault("inventory.queue_size", 256)
	v.SetDefault("inventory.history_limit", 10)

	// Keys without a default must be bound for APP_* overrides to reach Unmarshal.
	for _, k := range []string{"telegram.token", "telegram.admin_chat_id", "postgres.dsn", "redis.addr", "redis.password", "redis.db"} {
		_ = v.BindEnv(k)
	}
}

// Load reads an optional .env, then the YAML file at path, then APP_*
// environment overrides (APP_POSTGRES_DSN for postgres.dsn).
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Postgres.DSN == "":
		return errors.New("config: postgres.dsn is required")
	case c.Inventory.Workers <= 0:
		return errors.New("config: inventory.workers must be positive")
	case c.Inventory.QueueSize < 0:
		return errors.New("config: inventory.queue_size must not be negative")
	case c.Postgres.MaxConns > 0 && int(c.Postgres.MaxConns) <= c.Inventory.Workers:
		// Each worker holds a connection for its transaction; the rest serve reads.
		return errors.New("config: inventory.workers must be below postgres.max_conns")
	case c.Inventory.LockTimeout <= 0:
		return errors.New("config: inventory.lock_timeout must be positive")
	case c.Telegram.Token != "" && c.Telegram.AdminChatID == 0:
		return errors.New("config: telegram.admin_chat_id is required with a bot token")
	}
	return nil
}
