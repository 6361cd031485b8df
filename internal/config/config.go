package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the prospect API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine settings.
type EngineConfig struct {
	Addrs []string `yaml:"addrs"`
	// Indexes maps entity names (company, contact) to index names.
	Indexes map[string]string `yaml:"indexes"`
	// SearchFields maps entity names to free-text match fields (boosts allowed).
	SearchFields map[string][]string `yaml:"search_fields"`
}

// CacheConfig holds filter cache settings.
type CacheConfig struct {
	Driver       string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs        []string `yaml:"addrs"`
	Password     string   `yaml:"password"`
	LongTTLSec   int      `yaml:"long_ttl_sec"`
	ShortTTLSec  int      `yaml:"short_ttl_sec"`
	ReadyTimeout int      `yaml:"readiness_timeout_sec"`
}

// LedgerConfig holds credit ledger settings.
type LedgerConfig struct {
	Driver       string           `yaml:"driver"` // postgres, memory (default: memory)
	PostgresDSN  string           `yaml:"postgres_dsn"`
	DefaultGrant int64            `yaml:"default_grant"`
	Costs        map[string]int64 `yaml:"costs"` // category -> credits
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.Engine.Indexes) == 0 {
		c.Engine.Indexes = map[string]string{
			"company": "companies",
			"contact": "contacts",
		}
	}
	if len(c.Engine.SearchFields) == 0 {
		c.Engine.SearchFields = map[string][]string{
			"company": {"name^3", "description", "industry", "technologies"},
			"contact": {"first_name^2", "last_name^2", "job_title", "company_name"},
		}
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.LongTTLSec <= 0 {
		c.Cache.LongTTLSec = 6 * 60 * 60
	}
	if c.Cache.ShortTTLSec <= 0 {
		c.Cache.ShortTTLSec = 5 * 60
	}
	if c.Cache.ReadyTimeout <= 0 {
		c.Cache.ReadyTimeout = 10
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "memory"
	}
	if c.Ledger.DefaultGrant <= 0 {
		c.Ledger.DefaultGrant = 100
	}
	if len(c.Ledger.Costs) == 0 {
		c.Ledger.Costs = map[string]int64{
			"reveal_email": 1,
			"reveal_phone": 5,
			"export":       10,
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	switch c.Ledger.Driver {
	case "memory":
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			return fmt.Errorf("ledger.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("ledger.driver must be \"memory\" or \"postgres\", got %q", c.Ledger.Driver)
	}
	for category, cost := range c.Ledger.Costs {
		if cost < 0 {
			return fmt.Errorf("ledger.costs.%s must not be negative, got %d", category, cost)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
