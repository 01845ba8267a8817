// Package config loads runtime settings for the orchestration service.
// Precedence is defaults, then an optional YAML file, then NION_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for the generation client.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Config captures every user-configurable setting of the service.
type Config struct {
	// Server.
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"`

	// Generation client.
	LLMProvider    string        `yaml:"llm_provider"`
	LLMModel       string        `yaml:"llm_model"`
	LLMBaseURL     string        `yaml:"llm_base_url"`
	APIKey         string        `yaml:"api_key"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Retry policy for generation calls.
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`

	// Cache tiers.
	CacheRemoteURL  string        `yaml:"cache_remote_url"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	KnowledgeTTL    time.Duration `yaml:"knowledge_ttl"`

	// Engine.
	MaxSteps int `yaml:"max_steps"`
}

// Addr returns the server listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type loadOptions struct {
	envLookup func(string) (string, bool)
	readFile  func(string) ([]byte, error)
	path      string
}

// Option adjusts how Load resolves its inputs.
type Option func(*loadOptions)

// WithEnvLookup replaces the environment source, primarily for tests.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.envLookup = lookup }
}

// WithFileReader replaces the config file reader, primarily for tests.
func WithFileReader(read func(string) ([]byte, error)) Option {
	return func(o *loadOptions) { o.readFile = read }
}

// WithFile selects the YAML config file to load. An empty path reads the
// NION_CONFIG environment variable; a missing file is not an error.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.path = path }
}

func defaults() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8000,
		CORSOrigins:       []string{"*"},
		LLMProvider:       ProviderMock,
		LLMModel:          "gemini-2.0-flash",
		Temperature:       0.7,
		MaxTokens:         1500,
		RequestTimeout:    60 * time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 4 * time.Second,
		CacheMaxEntries:   1024,
		KnowledgeTTL:      60 * time.Second,
		MaxSteps:          25,
	}
}

// Load resolves the effective configuration. A configured non-mock provider
// without an API key downgrades to the mock provider so the service always
// starts.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{
		envLookup: os.LookupEnv,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := defaults()

	path := options.path
	if path == "" {
		if fromEnv, ok := options.envLookup("NION_CONFIG"); ok {
			path = fromEnv
		}
	}
	if path != "" {
		data, err := options.readFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// A missing file falls through to env and defaults.
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, options.envLookup); err != nil {
		return Config{}, err
	}

	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var firstErr error
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
			return
		}
		*dst = n
	}
	setFloat := func(key string, dst *float64) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
			return
		}
		*dst = f
	}
	setDuration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
			return
		}
		*dst = d
	}
	setBool := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
			return
		}
		*dst = b
	}

	setString("NION_HOST", &cfg.Host)
	setInt("NION_PORT", &cfg.Port)
	setBool("NION_DEBUG", &cfg.Debug)
	if v, ok := lookup("NION_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitAndTrim(v)
	}
	setString("NION_LLM_PROVIDER", &cfg.LLMProvider)
	setString("NION_LLM_MODEL", &cfg.LLMModel)
	setString("NION_LLM_BASE_URL", &cfg.LLMBaseURL)
	setString("NION_API_KEY", &cfg.APIKey)
	setFloat("NION_TEMPERATURE", &cfg.Temperature)
	setInt("NION_MAX_TOKENS", &cfg.MaxTokens)
	setDuration("NION_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	setInt("NION_RETRY_MAX_ATTEMPTS", &cfg.RetryMaxAttempts)
	setDuration("NION_RETRY_INITIAL_DELAY", &cfg.RetryInitialDelay)
	setString("NION_CACHE_REMOTE_URL", &cfg.CacheRemoteURL)
	setInt("NION_CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries)
	setDuration("NION_KNOWLEDGE_TTL", &cfg.KnowledgeTTL)
	setInt("NION_MAX_STEPS", &cfg.MaxSteps)

	return firstErr
}

func normalize(cfg *Config) {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMProvider != ProviderMock && cfg.APIKey == "" {
		cfg.LLMProvider = ProviderMock
	}
	if cfg.Port <= 0 {
		cfg.Port = 8000
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 25
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
