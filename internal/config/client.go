package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the configuration of the messenger CLI.
// Sources, highest priority first: CLI flags, MESSENGER_* environment
// variables, the YAML file, DefaultClientConfig.
type ClientConfig struct {
	// BaseURL is the API origin; sessions are stored per origin.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	Session SessionConfig `yaml:"session"`

	LogLevel string `yaml:"log_level"`
}

// SessionConfig selects where the session token is kept.
type SessionConfig struct {
	// Driver: "pebble" (default) | "memory"
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// DefaultClientConfig returns the built-in defaults.
func DefaultClientConfig() *ClientConfig {
	sessionPath := "messenger-session"
	if home, err := os.UserHomeDir(); err == nil {
		sessionPath = filepath.Join(home, ".local", "share", "z-messenger", "session")
	}
	return &ClientConfig{
		BaseURL:  "http://localhost:8080",
		Timeout:  15 * time.Second,
		Session:  SessionConfig{Driver: "pebble", Path: sessionPath},
		LogLevel: "warn",
	}
}

// DefaultClientConfigPath returns ~/.config/z-messenger/config.yaml.
func DefaultClientConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "z-messenger", "config.yaml")
}

// LoadClient reads path (a missing file is not an error) and applies env overrides.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path == "" {
		path = DefaultClientConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyClientEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a client cannot run without.
func (c *ClientConfig) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.Session.Driver {
	case "pebble", "memory":
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *ClientConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func applyClientEnv(cfg *ClientConfig) error {
	if v := strings.TrimSpace(os.Getenv("MESSENGER_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSENGER_SESSION_DRIVER")); v != "" {
		cfg.Session.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("MESSENGER_SESSION_PATH")); v != "" {
		cfg.Session.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	timeout, err := parseOptionalDurationEnv("MESSENGER_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		cfg.Timeout = *timeout
	}
	return nil
}
