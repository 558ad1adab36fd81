// Package config reads generator settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "GRAPE2OPENAPI_"

// DefaultEnvFile is loaded when present and no explicit file is given.
const DefaultEnvFile = ".env"

// Config holds the settings the generate command accepts from the
// environment. Layout fields are left empty by default so a manifest's own
// layout can take effect.
type Config struct {
	Input       string        `env:"INPUT"`
	Base        string        `env:"BASE"`
	Out         string        `env:"OUT" envDefault:"openapi.json"`
	Format      string        `env:"FORMAT"`
	APIPrefix   string        `env:"API_PREFIX"`
	APIVersion  string        `env:"API_VERSION"`
	Title       string        `env:"TITLE"`
	Version     string        `env:"VERSION"`
	Description string        `env:"DESCRIPTION"`
	Servers     []string      `env:"SERVERS" envSeparator:","`
	Concurrency int           `env:"CONCURRENCY" envDefault:"1"`
	Sanitize    bool          `env:"SANITIZE"`
	Fragments   bool          `env:"FRAGMENTS"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	Verbose     bool          `env:"VERBOSE"`
}

// Load reads envFile into the process environment and parses it. An empty
// envFile falls back to DefaultEnvFile, which may be missing. Variables
// already set in the process win over the file.
func Load(envFile string) (*Config, error) {
	path := envFile
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return Parse(nil)
}

// Parse reads the prefixed variables from environment, or from the process
// environment when environment is nil.
func Parse(environment map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &cfg, nil
}
