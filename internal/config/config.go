package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/fetch-resolver/internal/logx"
)

const defaultTimeoutMs = 30000

type Config struct {
	HTTP struct {
		// TimeoutMs is the request timeout. 0 means the 30s default, -1 disables it.
		TimeoutMs int    `yaml:"timeout_ms"`
		UserAgent string `yaml:"user_agent"`
		// Proxy is an optional outbound proxy URL (e.g. "http://127.0.0.1:7890").
		Proxy   string            `yaml:"proxy"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"http"`

	Rules struct {
		// File is the default rules file used when no --rules flag is given.
		File string `yaml:"file"`
	} `yaml:"rules"`

	Logging struct {
		Level string `yaml:"level"`
		// Color is auto, always or never.
		Color string `yaml:"color"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// LoadIfExists behaves like Load but returns defaults when path does not exist.
func LoadIfExists(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.TimeoutMs == 0 {
		cfg.HTTP.TimeoutMs = defaultTimeoutMs
	}
	if strings.TrimSpace(cfg.HTTP.UserAgent) == "" {
		cfg.HTTP.UserAgent = "fetch-resolver"
	}
	if cfg.HTTP.Headers == nil {
		cfg.HTTP.Headers = map[string]string{}
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Logging.Color) == "" {
		cfg.Logging.Color = "auto"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("FR_HTTP_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FR_USER_AGENT")); v != "" {
		cfg.HTTP.UserAgent = v
	}
	if v, ok := os.LookupEnv("FR_HTTP_PROXY"); ok {
		cfg.HTTP.Proxy = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("FR_RULES_FILE")); v != "" {
		cfg.Rules.File = v
	}
	if v := strings.TrimSpace(os.Getenv("FR_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("FR_LOG_COLOR")); v != "" {
		cfg.Logging.Color = v
	}
}

func validate(cfg *Config) error {
	if cfg.HTTP.TimeoutMs < -1 {
		return errors.New("http.timeout_ms must be >= 0, or -1 to disable")
	}
	if p := strings.TrimSpace(cfg.HTTP.Proxy); p != "" {
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid http.proxy %q", p)
		}
	}
	if _, err := logx.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Color)) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("logging.color must be auto, always or never, got %q", cfg.Logging.Color)
	}
	return nil
}

// Timeout returns the request timeout; zero means no timeout (timeout_ms: -1).
func (c *Config) Timeout() time.Duration {
	switch {
	case c.HTTP.TimeoutMs < 0:
		return 0
	case c.HTTP.TimeoutMs == 0:
		return defaultTimeoutMs * time.Millisecond
	default:
		return time.Duration(c.HTTP.TimeoutMs) * time.Millisecond
	}
}

// Header converts http.headers into an http.Header.
func (c *Config) Header() http.Header {
	h := make(http.Header, len(c.HTTP.Headers))
	for k, v := range c.HTTP.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		h.Set(k, v)
	}
	return h
}

// HTTPClient builds the outbound client from http.timeout_ms and http.proxy.
func (c *Config) HTTPClient() *http.Client {
	client := &http.Client{Timeout: c.Timeout()}
	if p := strings.TrimSpace(c.HTTP.Proxy); p != "" {
		u, err := url.Parse(p)
		if err == nil {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.Proxy = http.ProxyURL(u)
			client.Transport = tr
		}
	}
	return client
}
