package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            struct {
			Enabled      bool     `yaml:"enabled"`
			AllowOrigins []string `yaml:"allow_origins"`
		} `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Trends struct {
		Keyword         string        `yaml:"keyword" default:"west indies vs south africa" validate:"required"`
		BaseURL         string        `yaml:"base_url" default:"https://trends.google.com/trends" validate:"required,url"`
		Language        string        `yaml:"hl" default:"en-US"`
		TZOffset        int           `yaml:"tz" default:"360"`
		Geo             string        `yaml:"geo"`
		WindowDays      int           `yaml:"window_days" default:"7" validate:"gte=1,lte=90"`
		ShareBoundary   bool          `yaml:"share_boundary"`
		MaxRetries      int           `yaml:"max_retries" default:"5" validate:"gte=1,lte=20"`
		InitialBackoff  time.Duration `yaml:"initial_backoff" default:"60s" validate:"gt=0s"`
		MaxBackoff      time.Duration `yaml:"max_backoff" validate:"gte=0s"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"30s" validate:"gt=0s"`
		RequestDeadline time.Duration `yaml:"request_deadline" default:"5m" validate:"gte=0s"`
	} `yaml:"trends"`
	Chart struct {
		WidthInches  float64 `yaml:"width_inches" default:"12" validate:"gt=0"`
		HeightInches float64 `yaml:"height_inches" default:"8" validate:"gt=0"`
	} `yaml:"chart"`
	RateLimit struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		Burst        int           `yaml:"burst" default:"5" validate:"gte=1"`
		RefillPerSec float64       `yaml:"refill_per_sec" default:"0.5" validate:"gt=0"`
		IdleAfter    time.Duration `yaml:"idle_after" default:"5m" validate:"gte=0s"`
	} `yaml:"ratelimit"`
	Cooldown struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none memory redis"`
		Memory  struct {
			MaxEntries      int           `yaml:"max_entries" default:"1000" validate:"gte=1"`
			CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m" validate:"gt=0s"`
		} `yaml:"memory"`
		Redis struct {
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"trendpulse"`
			PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2" validate:"gte=0"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s" validate:"gt=0s"`
		} `yaml:"redis"`
	} `yaml:"cooldown"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"trendpulse.reports"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TRENDS_KEYWORD"); v != "" {
		c.Trends.Keyword = v
	}
	if v := os.Getenv("TRENDS_BASE_URL"); v != "" {
		c.Trends.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COOLDOWN_BACKEND"); v != "" {
		c.Cooldown.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cooldown.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Trends.MaxBackoff > 0 && c.Trends.MaxBackoff < c.Trends.InitialBackoff {
		return fmt.Errorf("trends.max_backoff must be >= trends.initial_backoff")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.Server.CORS.Enabled && len(c.Server.CORS.AllowOrigins) == 0 {
		return fmt.Errorf("server.cors.allow_origins cannot be empty when cors is enabled")
	}
	if c.Cooldown.Backend == "redis" && c.Cooldown.Redis.Addr == "" {
		return fmt.Errorf("cooldown.redis.addr is required for the redis backend")
	}
	return nil
}
