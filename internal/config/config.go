package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rishi-narain/ad-tester/internal/llm"
	"github.com/rishi-narain/ad-tester/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yml"

// Config holds application configuration
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		Mode           string   `yaml:"mode"` // gin mode: debug, release, test
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	// Providers are tried in order; later ones are fallbacks.
	Providers               []llm.ProviderConfig `yaml:"providers"`
	MaxFailuresBeforeSwitch int                  `yaml:"max_failures_before_switch"`

	LLM struct {
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxConcurrency int           `yaml:"max_concurrency"`
		IncludeQuote   bool          `yaml:"include_quote"`
	} `yaml:"llm"`

	Cache struct {
		Size int           `yaml:"size"` // 0 disables the result cache
		TTL  time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Database struct {
		Path string `yaml:"path"` // SQLite path or PostgreSQL URL
		Type string `yaml:"type"` // "sqlite" or "postgres"
	} `yaml:"database"`

	Admin struct {
		Token     string        `yaml:"token"`
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"admin"`

	// PersonasFile optionally replaces the built-in default personas.
	PersonasFile string `yaml:"personas_file"`

	Settings models.Settings `yaml:"settings"`
}

// Path returns CONFIG_PATH or the default config location.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	// bools that default to true must be set before decoding
	config.Settings.EnableAnalytics = true

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.Server.Mode == "" {
		config.Server.Mode = "debug"
	}

	if config.MaxFailuresBeforeSwitch == 0 {
		config.MaxFailuresBeforeSwitch = 3
	}

	if config.LLM.RequestTimeout == 0 {
		config.LLM.RequestTimeout = 60 * time.Second
	}

	if config.Cache.Size > 0 && config.Cache.TTL == 0 {
		config.Cache.TTL = 10 * time.Minute
	}

	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}

	if config.Database.Path == "" {
		config.Database.Path = "./data/adtester.db"
	}

	if config.Admin.TokenTTL == 0 {
		config.Admin.TokenTTL = 24 * time.Hour
	}

	if config.Settings.MaxFileSizeMB == 0 {
		config.Settings.MaxFileSizeMB = 4
	}

	if len(config.Settings.AllowedFileTypes) == 0 {
		config.Settings.AllowedFileTypes = []string{"jpg", "png", "gif", "webp"}
	}

	for i := range config.Providers {
		p := &config.Providers[i]
		// Expand environment variables in provider API keys
		p.APIKey = os.ExpandEnv(p.APIKey)
		if p.Type == "" {
			p.Type = llm.ProviderOpenAI
		}
		if p.Temperature == 0 {
			p.Temperature = 0.7
		}
		if p.Timeout == 0 {
			p.Timeout = config.LLM.RequestTimeout
		}
	}

	config.Database.Path = os.ExpandEnv(config.Database.Path)
	config.Admin.Token = os.ExpandEnv(config.Admin.Token)
	config.Admin.JWTSecret = os.ExpandEnv(config.Admin.JWTSecret)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.type %q: must be sqlite or postgres", c.Database.Type)
	}
	if c.LLM.MaxConcurrency < 0 {
		return fmt.Errorf("invalid llm.max_concurrency %d", c.LLM.MaxConcurrency)
	}
	for i, p := range c.Providers {
		switch p.Type {
		case llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderOpenRouter, llm.ProviderGemini:
		default:
			return fmt.Errorf("providers[%d]: unknown type %q", i, p.Type)
		}
	}
	return nil
}

// PrimaryAPIKey returns the first configured provider key, for display.
func (c *Config) PrimaryAPIKey() string {
	for _, p := range c.Providers {
		if p.APIKey != "" {
			return p.APIKey
		}
	}
	return ""
}
