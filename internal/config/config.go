package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultConfigDir  = ".cstk"
	DefaultConfigFile = "config.json"
	DefaultDBFile     = ".cstk/cstk.db"
	DefaultReportsDir = ".cstk/reports"
	DefaultBackendURL = "http://localhost:8000"
)

// Load reads the config file (creating defaults if absent) and returns a
// populated Config. The configPath flag may override the default location.
// Environment variables prefixed CSTK_ override file values, so the backend
// base URL is CSTK_BACKEND_URL and nothing else.
func Load(configPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("CSTK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
		// No config yet — defaults apply until the user saves one.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	expandPaths(&cfg, home)
	return &cfg, nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}

	if configPath == "" {
		configPath = filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}

	return os.WriteFile(configPath, data, 0o600)
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout_seconds", 15)
	v.SetDefault("backend.retry_max", 3)

	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("journal.dsn", "")

	v.SetDefault("watch.interval_seconds", 2)
	v.SetDefault("watch.max_backoff_seconds", 30)
	v.SetDefault("watch.max_duration_minutes", 30)

	v.SetDefault("list.page_size", 20)
	v.SetDefault("list.refresh_seconds", 30)
	v.SetDefault("list.debounce_millis", 300)

	v.SetDefault("reports.dir", filepath.Join(home, DefaultReportsDir))
}

// expandPaths resolves ~ in configured paths.
func expandPaths(cfg *Config, home string) {
	cfg.Journal.Path = expandHome(cfg.Journal.Path, home)
	cfg.Reports.Dir = expandHome(cfg.Reports.Dir, home)
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
