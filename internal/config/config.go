package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/hamed0406/statusledger/internal/domain"
)

// EnvPrefix prefixes environment overrides: monitor.interval is read from
// STATUSLEDGER_MONITOR_INTERVAL.
const EnvPrefix = "STATUSLEDGER"

type Config struct {
	Addr      string `mapstructure:"addr"`    // status API bind address, e.g. "127.0.0.1:8080" or ":8080"
	LogDir    string `mapstructure:"log_dir"` // logs directory
	LogLevel  string `mapstructure:"log_level"`
	LogStderr bool   `mapstructure:"log_stderr"` // also write logs to stderr

	Monitor      MonitorConfig      `mapstructure:"monitor"`
	Notification NotificationConfig `mapstructure:"notification"`
	Store        StoreConfig        `mapstructure:"store"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Hooks        HooksConfig        `mapstructure:"hooks"`
	API          APIConfig          `mapstructure:"api"`
	Page         PageConfig         `mapstructure:"page"`
	Remote       RemoteConfig       `mapstructure:"remote"`

	Targets []domain.Target `mapstructure:"targets"`
}

type MonitorConfig struct {
	Interval               time.Duration `mapstructure:"interval"`
	Concurrency            int           `mapstructure:"concurrency"`
	Location               string        `mapstructure:"location"` // reported as the latency sample location of local checks
	RetryAttempts          int           `mapstructure:"retry_attempts"`
	RetryBackoff           time.Duration `mapstructure:"retry_backoff"`
	DNSAnnotate            bool          `mapstructure:"dns_annotate"`
	KVWriteCooldownMinutes int           `mapstructure:"kv_write_cooldown_minutes"`
}

type NotificationConfig struct {
	// GracePeriodMinutes is nil when unset: notify on every transition.
	GracePeriodMinutes  *int     `mapstructure:"grace_period_minutes"`
	SkipNotificationIDs []string `mapstructure:"skip_notification_ids"`
	AppriseAPIServer    string   `mapstructure:"apprise_api_server"`
	RecipientURL        string   `mapstructure:"recipient_url"`
	TeamsWebhookURL     string   `mapstructure:"teams_webhook_url"`
	SlackWebhookURL     string   `mapstructure:"slack_webhook_url"`
	TimeZone            string   `mapstructure:"time_zone"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // memory | postgres | redis
	DatabaseURL string `mapstructure:"database_url"`
	Key         string `mapstructure:"key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HooksConfig struct {
	Log          bool   `mapstructure:"log"`
	RedisChannel string `mapstructure:"redis_channel"`
}

type APIConfig struct {
	PublicKeys         []string `mapstructure:"public_keys"`
	AdminKeys          []string `mapstructure:"admin_keys"`
	PasswordProtection string   `mapstructure:"password_protection"` // "user:pass", empty disables
	PublicRPM          int      `mapstructure:"public_rpm"`
	PublicBurst        int      `mapstructure:"public_burst"`
}

type PageGroup struct {
	Name    string            `mapstructure:"name" json:"name"`
	Targets []domain.TargetID `mapstructure:"targets" json:"targets"`
}

type PageConfig struct {
	Title  string      `mapstructure:"title"`
	Groups []PageGroup `mapstructure:"groups"`
}

// RemoteConfig configures cmd/remote-checker.
type RemoteConfig struct {
	Addr      string `mapstructure:"addr"`       // empty disables the HTTP listener
	ActorName string `mapstructure:"actor_name"` // empty disables the redis actor
	Location  string `mapstructure:"location"`
}

// Load reads path, or config.yaml from "." and "configs" when path is empty.
// A missing default file is not an error; defaults and env still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("notification.grace_period_minutes")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for i := range cfg.Targets {
		if cfg.Targets[i].Kind == "" {
			cfg.Targets[i].Kind = domain.KindHTTP
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_stderr", false)

	v.SetDefault("monitor.interval", "1m")
	v.SetDefault("monitor.concurrency", 8)
	v.SetDefault("monitor.location", "local")
	v.SetDefault("monitor.retry_attempts", 0)
	v.SetDefault("monitor.retry_backoff", "300ms")
	v.SetDefault("monitor.dns_annotate", false)
	v.SetDefault("monitor.kv_write_cooldown_minutes", 3)

	v.SetDefault("notification.skip_notification_ids", []string{})
	v.SetDefault("notification.apprise_api_server", "")
	v.SetDefault("notification.recipient_url", "")
	v.SetDefault("notification.teams_webhook_url", "")
	v.SetDefault("notification.slack_webhook_url", "")
	v.SetDefault("notification.time_zone", "UTC")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.key", "state")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("hooks.log", true)
	v.SetDefault("hooks.redis_channel", "")

	v.SetDefault("api.public_keys", []string{})
	v.SetDefault("api.admin_keys", []string{})
	v.SetDefault("api.password_protection", "")
	v.SetDefault("api.public_rpm", 60)
	v.SetDefault("api.public_burst", 20)

	v.SetDefault("page.title", "Status")

	v.SetDefault("remote.addr", "")
	v.SetDefault("remote.actor_name", "")
	v.SetDefault("remote.location", "remote")
}

// Validate reports every problem found, combined.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Monitor.Interval < 0 {
		add("monitor.interval must not be negative")
	}
	if c.Monitor.Concurrency < 1 {
		add("monitor.concurrency must be at least 1, got %d", c.Monitor.Concurrency)
	}
	if c.Monitor.KVWriteCooldownMinutes < 0 {
		add("monitor.kv_write_cooldown_minutes must not be negative")
	}
	if c.Monitor.RetryAttempts < 0 {
		add("monitor.retry_attempts must not be negative")
	}
	if g := c.Notification.GracePeriodMinutes; g != nil && *g < 0 {
		add("notification.grace_period_minutes must not be negative")
	}
	if _, err := time.LoadLocation(c.Notification.TimeZone); err != nil {
		add("notification.time_zone: %v", err)
	}
	if (c.Notification.AppriseAPIServer == "") != (c.Notification.RecipientURL == "") {
		add("notification.apprise_api_server and notification.recipient_url must be set together")
	}

	switch c.Store.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for the postgres driver")
		}
	default:
		add("store.driver %q is not one of memory, postgres, redis", c.Store.Driver)
	}
	if c.Store.Key == "" {
		add("store.key is required")
	}
	if p := c.API.PasswordProtection; p != "" && !strings.Contains(p, ":") {
		add("api.password_protection must look like user:pass")
	}

	seen := make(map[domain.TargetID]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.ID == "" {
			add("targets[%d]: id is required", i)
			continue
		}
		if seen[t.ID] {
			add("targets[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		if t.Endpoint == "" {
			add("target %q: endpoint is required", t.ID)
		}
		if t.Kind != domain.KindHTTP && t.Kind != domain.KindTCP {
			add("target %q: unsupported kind %q", t.ID, t.Kind)
		}
		if t.Timeout < 0 {
			add("target %q: timeout must not be negative", t.ID)
		}
		// A bare integer decodes as nanoseconds.
		if t.Timeout > 0 && t.Timeout < time.Millisecond {
			add("target %q: timeout %s is below 1ms; write it with a unit such as 5s or 5000ms", t.ID, t.Timeout)
		}
		if t.DelegateAddress != "" && !validDelegate(t.DelegateAddress) {
			add("target %q: delegate_address %q must be http(s):// or actor://", t.ID, t.DelegateAddress)
		}
	}
	return errs
}

func validDelegate(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "actor":
		return true
	}
	return false
}

// TimeLocation returns the zone notification timestamps are rendered in.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Notification.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (r *RedisConfig) Options() *goredis.Options {
	return &goredis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

// UsesRedis reports whether any configured component needs a redis client.
func (c *Config) UsesRedis() bool {
	if c.Store.Driver == "redis" || c.Hooks.RedisChannel != "" {
		return true
	}
	for _, t := range c.Targets {
		if strings.HasPrefix(t.DelegateAddress, "actor://") {
			return true
		}
	}
	return false
}
