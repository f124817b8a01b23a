package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/igasar/doorlock/internal/doorlock/notify"
	"github.com/igasar/doorlock/internal/doorlock/relay"
	"github.com/igasar/doorlock/internal/doorlock/service"
)

// DevAPIToken is used when no token is configured outside prod.
const DevAPIToken = "dev-doorlock-token"

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables gRPC health
	Env      string `yaml:"env"`       // "dev" | "prod"
	APIToken string `yaml:"api_token"`
	Timezone string `yaml:"timezone"`

	DB        DBConfig          `yaml:"db"`
	Relay     relay.Config      `yaml:"relay"`
	Door      DoorConfig        `yaml:"door"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	MQTT      notify.MQTTConfig `yaml:"mqtt"`
	Log       LogConfig         `yaml:"log"`

	// Door audit retention
	DoorEventRetentionDays int `yaml:"door_event_retention_days"` // 0 = keep forever
	PruneIntervalHours     int `yaml:"prune_interval_hours"`
}

type DBConfig struct {
	Driver  string `yaml:"driver"` // "sqlite" | "mysql"
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type DoorConfig struct {
	DefaultDelaySeconds  int  `yaml:"default_delay_s"`
	MinDelaySeconds      int  `yaml:"min_delay_s"`
	MaxDelaySeconds      int  `yaml:"max_delay_s"`
	AutoOpenOnAttendance bool `yaml:"auto_open_on_attendance"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "console"
}

func Defaults() Config {
	return Config{
		HTTPAddr: ":5000",
		Env:      "dev",
		Timezone: "Local",
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "./data/doorlock.db",
		},
		Relay: relay.Config{
			Chip:      "gpiochip0",
			Pin:       17,
			ActiveLow: true,
		},
		Door: DoorConfig{
			DefaultDelaySeconds:  5,
			MinDelaySeconds:      1,
			MaxDelaySeconds:      30,
			AutoOpenOnAttendance: true,
		},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		MQTT:      notify.MQTTConfig{TopicPrefix: "doorlock"},
		Log:       LogConfig{Level: "info", Format: "json"},

		DoorEventRetentionDays: 90,
		PruneIntervalHours:     6,
	}
}

// Load layers defaults, the optional YAML file named by DOORLOCK_CONFIG_FILE,
// then DOORLOCK_* environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("DOORLOCK_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("DOORLOCK_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenvDefault("DOORLOCK_GRPC_ADDR", cfg.GRPCAddr)
	cfg.Env = getenvDefault("DOORLOCK_ENV", cfg.Env)
	cfg.APIToken = getenvDefault("DOORLOCK_API_TOKEN", cfg.APIToken)
	cfg.Timezone = getenvDefault("DOORLOCK_TIMEZONE", cfg.Timezone)

	cfg.DB.Driver = getenvDefault("DOORLOCK_DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Path = getenvDefault("DOORLOCK_DB_PATH", cfg.DB.Path)
	cfg.DB.DSN = getenvDefault("DOORLOCK_DB_DSN", cfg.DB.DSN)
	cfg.DB.Migrate = getenvBool("DOORLOCK_DB_MIGRATE", cfg.DB.Migrate)

	cfg.Relay.Chip = getenvDefault("DOORLOCK_RELAY_CHIP", cfg.Relay.Chip)
	cfg.Relay.Pin = getenvSignedInt("DOORLOCK_RELAY_PIN", cfg.Relay.Pin)
	cfg.Relay.ActiveLow = getenvBool("DOORLOCK_RELAY_ACTIVE_LOW", cfg.Relay.ActiveLow)
	cfg.Relay.Simulate = getenvBool("DOORLOCK_RELAY_SIMULATE", cfg.Relay.Simulate)

	cfg.Door.DefaultDelaySeconds = getenvInt("DOORLOCK_DOOR_DEFAULT_DELAY_S", cfg.Door.DefaultDelaySeconds)
	cfg.Door.MinDelaySeconds = getenvInt("DOORLOCK_DOOR_MIN_DELAY_S", cfg.Door.MinDelaySeconds)
	cfg.Door.MaxDelaySeconds = getenvInt("DOORLOCK_DOOR_MAX_DELAY_S", cfg.Door.MaxDelaySeconds)
	cfg.Door.AutoOpenOnAttendance = getenvBool("DOORLOCK_AUTO_OPEN_ON_ATTENDANCE", cfg.Door.AutoOpenOnAttendance)

	cfg.DoorEventRetentionDays = getenvInt("DOORLOCK_DOOR_EVENT_RETENTION_DAYS", cfg.DoorEventRetentionDays)
	cfg.PruneIntervalHours = getenvInt("DOORLOCK_PRUNE_INTERVAL_HOURS", cfg.PruneIntervalHours)

	cfg.RateLimit.RPS = getenvFloat("DOORLOCK_RATE_LIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = getenvInt("DOORLOCK_RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	cfg.MQTT.Host = getenvDefault("DOORLOCK_MQTT_HOST", cfg.MQTT.Host)
	cfg.MQTT.Port = getenvInt("DOORLOCK_MQTT_PORT", cfg.MQTT.Port)
	cfg.MQTT.ClientID = getenvDefault("DOORLOCK_MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.TopicPrefix = getenvDefault("DOORLOCK_MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	cfg.Log.Level = getenvDefault("DOORLOCK_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("DOORLOCK_LOG_FORMAT", cfg.Log.Format)
}

func (c *Config) validate() error {
	c.Env = strings.ToLower(c.Env)
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.DB.Driver = strings.ToLower(c.DB.Driver)
	switch c.DB.Driver {
	case "sqlite":
	case "mysql":
		if c.DB.DSN == "" {
			return errors.New("DOORLOCK_DB_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unsupported DOORLOCK_DB_DRIVER %q", c.DB.Driver)
	}

	if c.APIToken == "" {
		if c.Env == "prod" {
			return errors.New("DOORLOCK_API_TOKEN is required in prod")
		}
		c.APIToken = DevAPIToken
	}

	d := c.Door
	if d.MinDelaySeconds < 1 || d.MinDelaySeconds > d.MaxDelaySeconds {
		return fmt.Errorf("door delay bounds invalid: min=%d max=%d", d.MinDelaySeconds, d.MaxDelaySeconds)
	}
	if d.DefaultDelaySeconds < d.MinDelaySeconds || d.DefaultDelaySeconds > d.MaxDelaySeconds {
		return fmt.Errorf("default door delay %ds outside [%d, %d]", d.DefaultDelaySeconds, d.MinDelaySeconds, d.MaxDelaySeconds)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) DelayPolicy() service.DelayPolicy {
	return service.DelayPolicy{
		Default: time.Duration(c.Door.DefaultDelaySeconds) * time.Second,
		Min:     time.Duration(c.Door.MinDelaySeconds) * time.Second,
		Max:     time.Duration(c.Door.MaxDelaySeconds) * time.Second,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// getenvSignedInt allows negatives, e.g. RELAY_PIN=-1 for "no pin".
func getenvSignedInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}
