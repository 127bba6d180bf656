// Package config loads claw's settings from ~/.claw/config.yaml, an optional
// .env file in the working directory and CLAW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/klubi/claw/internal/provider"
)

// Environment variables that override file settings.
const (
	EnvProvider    = "CLAW_PROVIDER"
	EnvAPIKey      = "CLAW_API_KEY"
	EnvAPIBase     = "CLAW_API_BASE"
	EnvModel       = "CLAW_MODEL"
	EnvProjectRoot = "CLAW_PROJECT_ROOT"
)

type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Project ProjectConfig `yaml:"project"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // default "deepseek"
	APIKey      string  `yaml:"apiKey,omitempty"`
	APIBase     string  `yaml:"apiBase,omitempty"` // overrides the provider's endpoint
	Model       string  `yaml:"model"`             // default "deepseek-chat"
	MaxTokens   int     `yaml:"maxTokens"`         // default 4096
	Temperature float64 `yaml:"temperature"`       // default 0.3
	Timeout     int     `yaml:"timeout"`           // default 120 (seconds)
}

type ProjectConfig struct {
	Root          string `yaml:"root"`          // default "."
	AutoCommit    bool   `yaml:"autoCommit"`    // default true
	MaxIterations int    `yaml:"maxIterations"` // default 30
}

type ServerConfig struct {
	Port int    `yaml:"port"` // default 7117
	Host string `yaml:"host"` // default "127.0.0.1"
	// AllowedOrigins enables CORS for browser clients; "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

type StoreConfig struct {
	Type    string `yaml:"type"`    // "bolt" or "memory"
	DataDir string `yaml:"dataDir"` // default "~/.claw/data"
}

type LogConfig struct {
	Level  string `yaml:"level"`          // default "info"
	Format string `yaml:"format"`         // "console" or "json"
	File   string `yaml:"file,omitempty"` // empty logs to stderr
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    provider.DefaultProvider,
			Model:       "deepseek-chat",
			MaxTokens:   4096,
			Temperature: 0.3,
			Timeout:     int(provider.DefaultTimeout / time.Second),
		},
		Project: ProjectConfig{
			Root:          ".",
			AutoCommit:    true,
			MaxIterations: 30,
		},
		Server: ServerConfig{
			Port: 7117,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Type:    "bolt",
			DataDir: filepath.Join(homeDir(), "data"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the location of the config file (~/.claw/config.yaml).
func DefaultPath() string {
	return filepath.Join(homeDir(), "config.yaml")
}

// Load reads the config file at path (DefaultPath when empty) on top of the
// defaults, then loads .env from the working directory and applies the
// CLAW_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg.applyEnv()
	cfg.Project.Root = expandHome(cfg.Project.Root)
	cfg.Store.DataDir = expandHome(cfg.Store.DataDir)
	cfg.Log.File = expandHome(cfg.Log.File)

	return cfg, nil
}

// Save writes cfg to path (DefaultPath when empty). The file holds the API
// key, so it is only readable by the owner.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProvider); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvAPIBase); v != "" {
		c.LLM.APIBase = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvProjectRoot); v != "" {
		c.Project.Root = v
	}
	// Fall back to the provider's conventional variable, e.g. DEEPSEEK_API_KEY.
	if c.LLM.APIKey == "" && c.LLM.Provider != "" {
		c.LLM.APIKey = os.Getenv(strings.ToUpper(c.LLM.Provider) + "_API_KEY")
	}
}

// ProviderConfig returns the settings for the provider client.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.APIBase,
		Timeout:  time.Duration(c.LLM.Timeout) * time.Second,
	}
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ServerURL returns the base URL clients use to reach the server.
func (c *Config) ServerURL() string {
	return "http://" + c.ServerAddress()
}

// DBPath returns the full path to the BoltDB file (DataDir + "/claw.db").
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.DataDir, "claw.db")
}

// homeDir resolves ~/.claw, falling back to a temp directory if the home
// directory cannot be determined.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "claw")
	}
	return filepath.Join(home, ".claw")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
