package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"truthline/internal/cache"
	"truthline/internal/edgar"
	"truthline/internal/logging"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// Cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	SEC              edgar.Config   `yaml:"sec"`
	Prices           PricesConfig   `yaml:"prices"`
	RelativeStrength RSConfig       `yaml:"relative_strength"`
	Cache            CacheConfig    `yaml:"cache"`
	Scanner          ScannerConfig  `yaml:"scanner"`
	Server           ServerConfig   `yaml:"server"`
	Log              logging.Config `yaml:"log"`
}

// PricesConfig holds the price provider settings
type PricesConfig struct {
	TwelveDataKey string        `yaml:"twelve_data_key"`
	Spacing       time.Duration `yaml:"spacing" default:"150ms"`
	HistoryDays   int           `yaml:"history_days" default:"300" validate:"min=1,max=5000"`
	Yahoo         bool          `yaml:"yahoo" default:"true"` // fallback source
}

// RSConfig holds the relative strength defaults
type RSConfig struct {
	Settings   model.RSSettings `yaml:"settings"`
	Benchmarks []string         `yaml:"benchmarks"`
}

// CacheConfig holds cache backend settings
type CacheConfig struct {
	Backend  string            `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	Redis    cache.RedisConfig `yaml:"redis"`
	PriceTTL time.Duration     `yaml:"price_ttl" default:"6h"`
	TruthTTL time.Duration     `yaml:"truth_ttl" default:"1h"`
}

// ScannerConfig holds batch report settings
type ScannerConfig struct {
	Workers int           `yaml:"workers" default:"4" validate:"min=1,max=10"`
	Timeout time.Duration `yaml:"timeout" default:"5m"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	// only fails for non-pointer arguments
	_ = defaults.Set(cfg)
	cfg.RelativeStrength.Settings = model.DefaultRSSettings()
	cfg.RelativeStrength.Benchmarks = append([]string(nil), symbols.DefaultBenchmarks...)
	cfg.Server.CORSOrigins = []string{"*"}
	return cfg
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. A .env file in the working directory is read first; variables
// already set in the environment win over it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Use defaults if file doesn't exist
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides secrets and deployment settings from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("TWELVE_DATA_API_KEY"); v != "" {
		c.Prices.TwelveDataKey = v
	}
	if v := os.Getenv("SEC_USER_AGENT"); v != "" {
		c.SEC.UserAgent = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = BackendRedis
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr (REDIS_ADDR) is required for the redis backend")
	}
	if !c.Prices.Yahoo && c.Prices.TwelveDataKey == "" {
		return fmt.Errorf("no price source: set TWELVE_DATA_API_KEY or enable prices.yahoo")
	}
	for _, b := range c.RelativeStrength.Benchmarks {
		if !symbols.IsValid(symbols.Normalize(b)) {
			return fmt.Errorf("invalid benchmark ticker %q", b)
		}
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
