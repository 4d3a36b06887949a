package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Events   EventsConfig   `mapstructure:"events"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Dedupe   DedupeConfig   `mapstructure:"dedupe"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	CallbackPath    string        `mapstructure:"callback_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ChatConfig struct {
	Provider string        `mapstructure:"provider"` // groupme | discord
	GroupMe  GroupMeConfig `mapstructure:"groupme"`
	Discord  DiscordConfig `mapstructure:"discord"`
}

type GroupMeConfig struct {
	BotID   string        `mapstructure:"bot_id"`
	PostURL string        `mapstructure:"post_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

type EventsConfig struct {
	TrustedAgentPrefix string `mapstructure:"trusted_agent_prefix"`
}

type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	At       string `mapstructure:"at"`
	Timezone string `mapstructure:"timezone"`
}

type ScanConfig struct {
	SendInterval time.Duration `mapstructure:"send_interval"`
	Cards        bool          `mapstructure:"cards"`
}

type DedupeConfig struct {
	Backend string        `mapstructure:"backend"` // memory | redis | off
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Location resolves the schedule's time zone; birthdays are matched against that calendar.
func (c ScheduleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides
// (BEEDEE_*, with dots as underscores: BEEDEE_CHAT_GROUPME_BOT_ID).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("BEEDEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Chat.Provider {
	case "groupme", "discord":
	default:
		return fmt.Errorf("chat.provider must be groupme or discord, got %q", c.Chat.Provider)
	}

	switch c.Dedupe.Backend {
	case "memory", "redis", "off":
	default:
		return fmt.Errorf("dedupe.backend must be memory, redis or off, got %q", c.Dedupe.Backend)
	}

	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at must look like 09:00: %w", err)
	}
	return nil
}
