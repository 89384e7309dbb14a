package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures where the tables live, how models are built, and how they are served.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	// Peers (IPs or CIDRs) whose X-Forwarded-For / X-Real-IP headers are
	// believed. Everyone else is identified by the socket address.
	TrustedProxies []string `yaml:"trustedProxies,omitempty"`
}

type RateLimitConfig struct {
	// Requests per second per client IP; 0 disables limiting
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Clients idle this long are forgotten; 0 means 10m
	IdleTTL time.Duration `yaml:"idleTTL"`
}

// Data source values.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

type DataConfig struct {
	// "csv" reads the paths below directly, "sqlite" reads tables imported into Storage.DBPath
	Source           string `yaml:"source"`
	UsersPath        string `yaml:"usersPath"`
	BiosPath         string `yaml:"biosPath"`
	PostsPath        string `yaml:"postsPath"`
	InteractionsPath string `yaml:"interactionsPath"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type ModelConfig struct {
	// Size of the cached popularity ranking
	TopN int `yaml:"topN"`
	// Minimum distinct posts a user must have interacted with to be ranked
	MinInteractions int `yaml:"minInteractions"`
	// Default number of similar rows returned
	K int `yaml:"k"`
	// Workers used when computing similarity matrices
	Workers int `yaml:"workers"`
	// Optional per-action weights laid over the defaults, e.g. {"Love": 3}
	Strengths map[string]float64 `yaml:"strengths,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

type MetricsConfig struct {
	// Separate listener for /metrics; if empty, metrics are only on the main router
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit:    RateLimitConfig{RPS: 10, Burst: 20, IdleTTL: 10 * time.Minute},
		},
		Data: DataConfig{
			Source:           SourceCSV,
			UsersPath:        "./used_data/users.csv",
			BiosPath:         "./used_data/users_sim.csv",
			PostsPath:        "./used_data/posts_deploy.csv",
			InteractionsPath: "./used_data/interactions.csv",
		},
		Storage: StorageConfig{DBPath: "./starling.db"},
		Model:   ModelConfig{TopN: 10, MinInteractions: 2, K: 10, Workers: 4},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// ResolveEnv overrides config fields from environment variables when set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("STARLING_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STARLING_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("STARLING_DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("STARLING_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Server.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.UsersPath == "" || c.Data.BiosPath == "" || c.Data.PostsPath == "" || c.Data.InteractionsPath == "" {
			return errors.New("data: all table paths are required for csv source")
		}
	case SourceSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("storage: dbPath is required for sqlite source")
		}
	default:
		return fmt.Errorf("data: unknown source %q", c.Data.Source)
	}
	if c.Model.TopN <= 0 {
		return fmt.Errorf("model: topN must be positive, got %d", c.Model.TopN)
	}
	if c.Model.MinInteractions <= 0 {
		return fmt.Errorf("model: minInteractions must be positive, got %d", c.Model.MinInteractions)
	}
	if c.Model.K <= 0 {
		return fmt.Errorf("model: k must be positive, got %d", c.Model.K)
	}
	if c.Server.RateLimit.RPS < 0 || c.Server.RateLimit.Burst < 0 || c.Server.RateLimit.IdleTTL < 0 {
		return errors.New("server: rate limit values must not be negative")
	}
	if _, err := ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, cfg.Validate()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ParseTrustedProxies turns IPs and CIDRs into prefixes. A bare IP becomes a
// single-address prefix.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q is neither an IP nor a CIDR", e)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}
