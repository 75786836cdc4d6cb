// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine, real deployments pass variables directly
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Watch re-decodes the config file on change and hands the result to onChange.
// Invalid edits are reported through onError and otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		onChange(cfg)
	})
	v.WatchConfig()
}

// setDefaults registers every key so AutomaticEnv can bind it even when the
// YAML file omits it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.name", "anime-bot")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.webhook_listen", ":8443")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrations_dir", "./migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("state.session_ttl", time.Duration(0))
	v.SetDefault("state.lock_ttl", 5*time.Second)
	v.SetDefault("state.cleanup_interval", 10*time.Minute)

	v.SetDefault("admin.primary_id", 0)
	v.SetDefault("admin.seed", []int64{})

	v.SetDefault("ledger.vip_price", 25000)
	v.SetDefault("ledger.currency", "so'm")
	v.SetDefault("ledger.plan_days", []int{30, 60, 90})

	v.SetDefault("catalog.search_limit", 10)
	v.SetDefault("catalog.browse_limit", 50)
	v.SetDefault("catalog.page_size", 25)
	v.SetDefault("catalog.max_clip_seconds", 60)

	v.SetDefault("broadcast.interval", 50*time.Millisecond)
	v.SetDefault("broadcast.burst", 1)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.global.limit", 30)
	v.SetDefault("rate_limit.global.window", "1s")
	v.SetDefault("rate_limit.per_user.limit", 20)
	v.SetDefault("rate_limit.per_user.window", "1m")
	v.SetDefault("rate_limit.commands.search.limit", 10)
	v.SetDefault("rate_limit.commands.search.window", "1m")
	v.SetDefault("rate_limit.commands.purchase.limit", 5)
	v.SetDefault("rate_limit.commands.purchase.window", "1m")
	v.SetDefault("rate_limit.commands.broadcast.limit", 2)
	v.SetDefault("rate_limit.commands.broadcast.window", "10m")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.concurrency", 2)
	v.SetDefault("jobs.expiry_sweep_cron", "@every 1h")

	v.SetDefault("i18n.dir", "")
	v.SetDefault("i18n.default_lang", "uz")
}
