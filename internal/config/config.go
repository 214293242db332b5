package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Favorites   FavoritesConfig   `mapstructure:"favorites"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Search      SearchConfig      `mapstructure:"search"`
	Import      ImportConfig      `mapstructure:"import"`
	Open        OpenConfig        `mapstructure:"open"`
	Log         LogConfig         `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// HTTPTimeout of zero leaves requests unbounded; callers bound them
	// through their context.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type FavoritesConfig struct {
	// Strategy is one of rollback, optimistic or pessimistic.
	Strategy string `mapstructure:"strategy"`
}

type CredentialsConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	MaxResults     int `mapstructure:"max_results"`
	MinQueryLength int `mapstructure:"min_query_length"`
}

type ImportConfig struct {
	MaxItems          int           `mapstructure:"max_items"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	AllowPrivateHosts bool          `mapstructure:"allow_private_hosts"`
}

type OpenConfig struct {
	// Command opens story links; empty picks the platform opener.
	Command string `mapstructure:"command"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:     "https://hack-or-snooze-v3.herokuapp.com",
			HTTPTimeout: 0,
			UserAgent:   "linkboard/1.0 (https://github.com/pders01/linkboard)",
		},
		Favorites: FavoritesConfig{
			Strategy: "rollback",
		},
		Credentials: CredentialsConfig{
			Path:    filepath.Join(homeDir, ".linkboard", "credentials.db"),
			Timeout: 1 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:     20,
			MinQueryLength: 2,
		},
		Import: ImportConfig{
			MaxItems:          10,
			FetchTimeout:      30 * time.Second,
			AllowPrivateHosts: false,
		},
		Open: OpenConfig{
			Command: "",
		},
		Log: LogConfig{
			Level: "off",
			Path:  filepath.Join(homeDir, ".linkboard", "linkboard.log"),
		},
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "linkboard", "config.toml")
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.http_timeout", cfg.API.HTTPTimeout)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)
	v.SetDefault("favorites.strategy", cfg.Favorites.Strategy)
	v.SetDefault("credentials.path", cfg.Credentials.Path)
	v.SetDefault("credentials.timeout", cfg.Credentials.Timeout)
	v.SetDefault("search.max_results", cfg.Search.MaxResults)
	v.SetDefault("search.min_query_length", cfg.Search.MinQueryLength)
	v.SetDefault("import.max_items", cfg.Import.MaxItems)
	v.SetDefault("import.fetch_timeout", cfg.Import.FetchTimeout)
	v.SetDefault("import.allow_private_hosts", cfg.Import.AllowPrivateHosts)
	v.SetDefault("open.command", cfg.Open.Command)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.path", cfg.Log.Path)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LINKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)
	config.API.BaseURL = strings.TrimRight(config.API.BaseURL, "/")

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Credentials.Path = expandPath(cfg.Credentials.Path)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

// Save writes config as TOML. Durations are stored in their string form so
// the file stays hand-editable.
func Save(config *Config, path string) error {
	doc := map[string]interface{}{
		"api": map[string]interface{}{
			"base_url":     config.API.BaseURL,
			"http_timeout": config.API.HTTPTimeout.String(),
			"user_agent":   config.API.UserAgent,
		},
		"favorites": map[string]interface{}{
			"strategy": config.Favorites.Strategy,
		},
		"credentials": map[string]interface{}{
			"path":    config.Credentials.Path,
			"timeout": config.Credentials.Timeout.String(),
		},
		"search": map[string]interface{}{
			"max_results":      config.Search.MaxResults,
			"min_query_length": config.Search.MinQueryLength,
		},
		"import": map[string]interface{}{
			"max_items":           config.Import.MaxItems,
			"fetch_timeout":       config.Import.FetchTimeout.String(),
			"allow_private_hosts": config.Import.AllowPrivateHosts,
		},
		"open": map[string]interface{}{
			"command": config.Open.Command,
		},
		"log": map[string]interface{}{
			"level": config.Log.Level,
			"path":  config.Log.Path,
		},
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
