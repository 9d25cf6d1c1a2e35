// Package config provides functionality for managing configuration options
// for the server and the shell using command-line flags, config files and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// JWTSecret signs access tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL Duration `json:"token_ttl"`

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`

	LogLevel string `json:"log_level"`

	// CleanupInterval and Retention drive the purge of soft-deleted tasks.
	CleanupInterval Duration `json:"cleanup_interval"`
	Retention       Duration `json:"retention"`
}

// Duration is a time.Duration that reads "90s"-style strings from flags,
// JSON and TOML.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	return d.Set(string(b))
}

// Default server settings.
const (
	DefaultAddress         = "localhost:8000"
	DefaultTokenTTL        = 7 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour
	DefaultRetention       = 30 * 24 * time.Hour
)

// LoadDotEnv copies variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Parse parses args, then the JSON config file, then environment variables.
// Later sources override earlier ones.
func Parse(fs *flag.FlagSet, args []string) (*Options, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	options := &Options{
		TokenTTL:        Duration(DefaultTokenTTL),
		CleanupInterval: Duration(DefaultCleanupInterval),
		Retention:       Duration(DefaultRetention),
	}
	fs.StringVar(&options.Port, "a", DefaultAddress, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.JWTSecret, "secret", "", "access token signing secret")
	fs.Var(&options.TokenTTL, "ttl", "access token lifetime")
	fs.StringVar(&options.CertFile, "cert", "", "TLS certificate file")
	fs.StringVar(&options.KeyFile, "key", "", "TLS key file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.Var(&options.CleanupInterval, "cleanup-interval", "how often deleted tasks are purged")
	fs.Var(&options.Retention, "retention", "how long deleted tasks are kept")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	if options.JWTSecret == "" {
		return nil, errors.New("jwt secret is required (-secret or JWT_SECRET)")
	}
	if options.TokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return options, nil
}

// TLS reports whether both certificate and key are configured.
func (o *Options) TLS() bool {
	return o.CertFile != "" && o.KeyFile != ""
}
