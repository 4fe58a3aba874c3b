package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/user/riskscope/pkg/engine"
)

const envPrefix = "RISKSCOPE"

type ProviderConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

type Config struct {
	SelectedProvider string                    `yaml:"selected_provider" mapstructure:"selected_provider"`
	SelectedModel    string                    `yaml:"selected_model" mapstructure:"selected_model"`
	Providers        map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`

	// Context is the scoring context used when no --profile is given. An
	// empty org_type is taken from the scanned organization.
	Context engine.Context `yaml:"context" mapstructure:"context"`

	Formats     []string `yaml:"formats" mapstructure:"formats"`
	OutputDir   string   `yaml:"output_dir" mapstructure:"output_dir"`
	DBPath      string   `yaml:"db_path" mapstructure:"db_path"`
	ProfilesDir string   `yaml:"profiles_dir" mapstructure:"profiles_dir"`
	Concurrency int      `yaml:"concurrency" mapstructure:"concurrency"`
}

// Dir returns ~/.riskscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".riskscope"), nil
}

// DefaultPath returns the config file location used when --config is unset.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("selected_provider", "gemini")
	v.SetDefault("selected_model", "gemini-1.5-flash")
	v.SetDefault("context.org_type", "")
	v.SetDefault("context.data_criticality", string(engine.CriticalityHigh))
	v.SetDefault("context.internet_exposed", true)
	v.SetDefault("context.days_since_patch", 120)
	v.SetDefault("formats", []string{"md", "html", "pdf"})
	v.SetDefault("output_dir", "reports")
	v.SetDefault("db_path", filepath.Join(dir, "history.db"))
	v.SetDefault("profiles_dir", filepath.Join(dir, "profiles"))
	v.SetDefault("concurrency", 4)
}

// Load reads the config file at path (DefaultPath when empty), layered over
// defaults and under RISKSCOPE_* environment variables. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	// a .env in the working directory is optional
	_ = godotenv.Load()

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	cfg.SelectedProvider = strings.ToLower(cfg.SelectedProvider)
	return &cfg, nil
}

// Save writes cfg as YAML to path (DefaultPath when empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys)
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetAPIKey(provider, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	provider = strings.ToLower(provider)
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

// providerEnv lists the conventional environment variables per provider.
var providerEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// GetAPIKey returns the stored key, falling back to the provider's usual
// environment variable.
func (c *Config) GetAPIKey(provider string) string {
	provider = strings.ToLower(provider)
	if key := c.Providers[provider].APIKey; key != "" {
		return key
	}
	for _, name := range providerEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}

func (c *Config) BaseURL(provider string) string {
	return c.Providers[strings.ToLower(provider)].BaseURL
}
