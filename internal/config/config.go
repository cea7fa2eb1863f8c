package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is the config file looked up in the working directory
const DefaultFile = "melune.yaml"

// Config holds all configuration for melune.
// Values come from an optional YAML file; environment variables override it.
type Config struct {
	// DBPath is the sqlite file holding the persisted documents.
	// Defaults to ~/.melune/melune.db when empty.
	DBPath string `yaml:"db_path" env:"MELUNE_DB" env-default:""`

	// Addr is the listen address of the REST server
	Addr string `yaml:"addr" env:"MELUNE_ADDR" env-default:":8080"`

	// Env selects the logger flavour: "dev" logs to the console, anything else JSON
	Env      string `yaml:"env" env:"MELUNE_ENV" env-default:"dev"`
	LogLevel string `yaml:"log_level" env:"MELUNE_LOG_LEVEL" env-default:"info"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"MELUNE_FETCH_TIMEOUT" env-default:"30s"`
}

// Load reads the config file at path if it exists, then applies env overrides.
// An empty path only reads the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return finish(&cfg)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".melune", "melune.db")
	}
	return cfg, nil
}
