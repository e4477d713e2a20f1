package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/todoist-mcp/internal/cache"
	"github.com/teemow/todoist-mcp/internal/todoist"
)

const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"

	DefaultHTTPAddr    = ":8080"
	DefaultMetricsAddr = ":9090"
	DefaultTimeout     = 30 * time.Second
)

// Environment variables read by Load.
const (
	EnvAPIToken       = "TODOIST_API_TOKEN"
	EnvBaseURL        = "TODOIST_BASE_URL"
	EnvCacheTTL       = "TODOIST_CACHE_TTL"
	EnvTimeout        = "TODOIST_TIMEOUT"
	EnvReadOnly       = "TODOIST_READ_ONLY"
	EnvMetricsEnabled = "METRICS_ENABLED"
	EnvMetricsAddr    = "METRICS_ADDR"
)

// Config is the complete server configuration.
type Config struct {
	Todoist TodoistConfig `yaml:"todoist"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// TodoistConfig configures the upstream API client and the resolver cache.
type TodoistConfig struct {
	APIToken string        `yaml:"apiToken"`
	BaseURL  string        `yaml:"baseURL"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	HTTPAddr  string `yaml:"httpAddr"`
	ReadOnly  bool   `yaml:"readOnly"`
	Debug     bool   `yaml:"debug"`
}

// MetricsConfig configures the dedicated Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration. It has no API token and is
// therefore not valid on its own.
func Default() *Config {
	return &Config{
		Todoist: TodoistConfig{
			BaseURL:  todoist.DefaultBaseURL,
			CacheTTL: cache.DefaultTTL,
			Timeout:  DefaultTimeout,
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			HTTPAddr:  DefaultHTTPAddr,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvAPIToken); ok {
		c.Todoist.APIToken = v
	}
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		c.Todoist.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok && v != "" {
		c.Metrics.Addr = v
	}

	var errs []error
	if err := envDuration(EnvCacheTTL, &c.Todoist.CacheTTL); err != nil {
		errs = append(errs, err)
	}
	if err := envDuration(EnvTimeout, &c.Todoist.Timeout); err != nil {
		errs = append(errs, err)
	}
	if err := envBool(EnvReadOnly, &c.Server.ReadOnly); err != nil {
		errs = append(errs, err)
	}
	if err := envBool(EnvMetricsEnabled, &c.Metrics.Enabled); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func envDuration(key string, target *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

func envBool(key string, target *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = b
	return nil
}

// Validate reports every problem that would prevent the server from starting.
func (c *Config) Validate() error {
	var errs []error

	if c.Todoist.APIToken == "" {
		errs = append(errs, fmt.Errorf("todoist API token is required (set %s)", EnvAPIToken))
	}
	if c.Todoist.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache TTL must be positive, got %s", c.Todoist.CacheTTL))
	}
	if c.Todoist.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.Todoist.Timeout))
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportStreamableHTTP:
		if c.Server.HTTPAddr == "" {
			errs = append(errs, errors.New("http address is required for the streamable-http transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported transport %q (supported: %s, %s)", c.Server.Transport, TransportStdio, TransportStreamableHTTP))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
