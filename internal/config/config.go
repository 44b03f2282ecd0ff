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

// Config holds the slotdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Search    SearchConfig    `yaml:"search"`
	Recommend RecommendConfig `yaml:"recommend"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Cache     CacheConfig     `yaml:"cache"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyMB       int `yaml:"max_body_mb"`
}

// SearchConfig tunes the hybrid search engine.
type SearchConfig struct {
	VectorDim      int     `yaml:"vector_dim"`
	BaseThreshold  float64 `yaml:"base_threshold"`
	MatchThreshold float64 `yaml:"match_threshold"`
	Advanced       *bool   `yaml:"advanced"` // false selects the legacy char-sum full scan
	TopK           int     `yaml:"top_k"`
	Debug          bool    `yaml:"debug"` // attach _score/_debug to every result
}

// RecommendConfig tunes the slot recommender and its training loop.
type RecommendConfig struct {
	WindowDays     int     `yaml:"window_days"`
	LearningRate   float64 `yaml:"learning_rate"`
	BatchSize      int     `yaml:"batch_size"`
	MemoryLimit    int     `yaml:"memory_limit"`
	HiddenDim      int     `yaml:"hidden_dim"`
	ExplorationStd float64 `yaml:"exploration_std"`
	ModelPath      string  `yaml:"model_path"`
	Seed           uint64  `yaml:"seed"` // 0 = time-based
}

// GeocodingConfig holds the location provider settings.
type GeocodingConfig struct {
	Enabled         bool    `yaml:"enabled"`
	BaseURL         string  `yaml:"base_url"`
	UserAgent       string  `yaml:"user_agent"`
	TimeoutSec      int     `yaml:"timeout_sec"`
	Retries         int     `yaml:"retries"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	BreakerFailures int     `yaml:"breaker_failures"`
	CacheTTLHours   int     `yaml:"cache_ttl_hours"`
}

// CacheConfig holds the shared cache store settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// KeywordsConfig holds the free-text keyword extraction provider settings.
type KeywordsConfig struct {
	Enabled bool         `yaml:"enabled"`
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Model   string       `yaml:"model"`
	Budget  BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds the keyword provider token budget.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// SearchAdvanced reports whether embedding-based candidate retrieval is on.
func (c *Config) SearchAdvanced() bool {
	return c.Search.Advanced == nil || *c.Search.Advanced
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyMB <= 0 {
		c.HTTP.MaxBodyMB = 10
	}

	if c.Search.VectorDim <= 0 {
		c.Search.VectorDim = 12
	}
	if c.Search.BaseThreshold <= 0 {
		c.Search.BaseThreshold = 0.6
	}
	if c.Search.MatchThreshold <= 0 {
		c.Search.MatchThreshold = 0.5
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 50
	}

	if c.Recommend.WindowDays <= 0 {
		c.Recommend.WindowDays = 30
	}
	if c.Recommend.LearningRate <= 0 {
		c.Recommend.LearningRate = 0.01
	}
	if c.Recommend.BatchSize <= 0 {
		c.Recommend.BatchSize = 32
	}
	if c.Recommend.MemoryLimit <= 0 {
		c.Recommend.MemoryLimit = 1000
	}
	if c.Recommend.HiddenDim <= 0 {
		c.Recommend.HiddenDim = 32
	}
	if c.Recommend.ExplorationStd <= 0 {
		c.Recommend.ExplorationStd = 0.01
	}
	if c.Recommend.ModelPath == "" {
		c.Recommend.ModelPath = "models/slot_model.json"
	}

	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "slotdex"
	}
	if c.Geocoding.TimeoutSec <= 0 {
		c.Geocoding.TimeoutSec = 5
	}
	if c.Geocoding.Retries < 0 {
		c.Geocoding.Retries = 0
	}
	if c.Geocoding.RatePerSec <= 0 {
		c.Geocoding.RatePerSec = 1
	}
	if c.Geocoding.BreakerFailures <= 0 {
		c.Geocoding.BreakerFailures = 5
	}
	if c.Geocoding.CacheTTLHours <= 0 {
		c.Geocoding.CacheTTLHours = 720
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "slotdex:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Keywords.Budget.Action == "" {
		c.Keywords.Budget.Action = "warn"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.BaseThreshold > 1 || c.Search.MatchThreshold > 1 {
		return fmt.Errorf("search thresholds must be in (0, 1], got base=%g match=%g",
			c.Search.BaseThreshold, c.Search.MatchThreshold)
	}
	if c.Recommend.MemoryLimit < c.Recommend.BatchSize {
		return fmt.Errorf("recommend.memory_limit (%d) must be >= recommend.batch_size (%d)",
			c.Recommend.MemoryLimit, c.Recommend.BatchSize)
	}
	switch c.Cache.Driver {
	case "none":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver \"redis\"")
		}
	default:
		return fmt.Errorf("cache.driver must be \"none\" or \"redis\", got %q", c.Cache.Driver)
	}
	if c.Keywords.Enabled && c.Keywords.APIKey == "" {
		return fmt.Errorf("keywords.api_key is required when keywords.enabled")
	}
	switch c.Keywords.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("keywords.budget.action must be \"warn\" or \"reject\", got %q", c.Keywords.Budget.Action)
	}
	if c.Keywords.Budget.DailyTokenLimit < 0 || c.Keywords.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("keywords.budget limits must be >= 0")
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
