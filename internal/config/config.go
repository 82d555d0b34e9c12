package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application config.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Consumer   ConsumerConfig   `koanf:"consumer"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Retention  RetentionConfig  `koanf:"retention"`
	Categories CategoriesConfig `koanf:"categories"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type LedgerConfig struct {
	Type     string `koanf:"type"` // database | redis
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	TTL      string `koanf:"ttl"` // parsed and validated on startup
}

type ConsumerConfig struct {
	WorkerCount       int    `koanf:"worker_count"`
	ChannelBufferSize int    `koanf:"channel_buffer_size"`
	OpTimeout         string `koanf:"op_timeout"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type RetentionConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SweepInterval string `koanf:"sweep_interval"`
	MaxLedgerAge  string `koanf:"max_ledger_age"`
}

type CategoriesConfig struct {
	// MapFile optionally overrides the built-in subject-prefix to category
	// mapping with a YAML file of prefix: category pairs.
	MapFile string `koanf:"map_file"`
}

func (c LedgerConfig) ParsedTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TTL)
}

func (c ConsumerConfig) ParsedOpTimeout() (time.Duration, error) {
	return time.ParseDuration(c.OpTimeout)
}

func (c RetentionConfig) ParsedSweepInterval() (time.Duration, error) {
	return time.ParseDuration(c.SweepInterval)
}

func (c RetentionConfig) ParsedMaxLedgerAge() (time.Duration, error) {
	return time.ParseDuration(c.MaxLedgerAge)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	switch c.Ledger.Type {
	case "database":
	case "redis":
		if strings.TrimSpace(c.Ledger.Addr) == "" {
			return fmt.Errorf("ledger.addr is required for the redis ledger")
		}
		if ttl, err := c.Ledger.ParsedTTL(); err != nil {
			return fmt.Errorf("invalid ledger.ttl %q: %w", c.Ledger.TTL, err)
		} else if ttl < 0 {
			return fmt.Errorf("ledger.ttl must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported ledger.type %q", c.Ledger.Type)
	}

	if c.Consumer.WorkerCount <= 0 {
		return fmt.Errorf("consumer.worker_count must be > 0")
	}
	if c.Consumer.ChannelBufferSize < 0 {
		return fmt.Errorf("consumer.channel_buffer_size must be >= 0")
	}
	opTimeout, err := c.Consumer.ParsedOpTimeout()
	if err != nil {
		return fmt.Errorf("invalid consumer.op_timeout %q: %w", c.Consumer.OpTimeout, err)
	}
	if opTimeout <= 0 {
		return fmt.Errorf("consumer.op_timeout must be > 0")
	}

	if c.Retention.Enabled {
		interval, err := c.Retention.ParsedSweepInterval()
		if err != nil {
			return fmt.Errorf("invalid retention.sweep_interval %q: %w", c.Retention.SweepInterval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("retention.sweep_interval must be > 0")
		}
		age, err := c.Retention.ParsedMaxLedgerAge()
		if err != nil {
			return fmt.Errorf("invalid retention.max_ledger_age %q: %w", c.Retention.MaxLedgerAge, err)
		}
		if age <= 0 {
			return fmt.Errorf("retention.max_ledger_age must be > 0")
		}
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                  8080,
		"server.host":                  "0.0.0.0",
		"server.max_body_size_mb":      1,
		"server.mode":                  "release",
		"database.type":                "postgres",
		"database.dsn":                 "",
		"database.max_open_conns":      25,
		"database.max_idle_conns":      25,
		"database.auto_migrate":        true,
		"ledger.type":                  "database",
		"ledger.addr":                  "",
		"ledger.password":              "",
		"ledger.db":                    0,
		"ledger.ttl":                   "720h",
		"consumer.worker_count":        4,
		"consumer.channel_buffer_size": 1024,
		"consumer.op_timeout":          "10s",
		"metrics.enabled":              true,
		"retention.enabled":            false,
		"retention.sweep_interval":     "1h",
		"retention.max_ledger_age":     "720h",
		"categories.map_file":          "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PULSE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PULSE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
