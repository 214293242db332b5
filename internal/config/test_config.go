package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:1",
			HTTPTimeout: 5 * time.Second,
			UserAgent:   "linkboard-test/1.0",
		},
		Favorites: FavoritesConfig{
			Strategy: "rollback",
		},
		Credentials: CredentialsConfig{
			Path:    "", // tests open stores under t.TempDir()
			Timeout: 1 * time.Second,
		},
		Search: defaultConfig().Search,
		Import: ImportConfig{
			MaxItems:          5,
			FetchTimeout:      5 * time.Second,
			AllowPrivateHosts: true,
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}
