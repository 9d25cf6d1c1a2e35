package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default shell settings.
const (
	DefaultAPIURL       = "http://127.0.0.1:8000"
	DefaultStoragePath  = "todo_storage.json"
	DefaultClientConfig = "todo.toml"
)

// ClientOptions holds the configuration values for the shell.
type ClientOptions struct {
	// APIURL is the base URL of the task API.
	APIURL string `toml:"api_url"`
	// StoragePath is the local file holding the credential and drafts.
	StoragePath string `toml:"storage"`
	// CAFile is an extra root certificate for https APIs.
	CAFile string `toml:"ca_file"`
	// Timeout bounds each request; zero means none.
	Timeout  Duration `toml:"timeout"`
	LogLevel string   `toml:"log_level"`

	Config      string `toml:"-"`
	ShowVersion bool   `toml:"-"`
}

// ParseClient builds ClientOptions from defaults, the TOML config file,
// environment variables and finally explicitly set flags.
func ParseClient(fs *flag.FlagSet, args []string) (*ClientOptions, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	opts := &ClientOptions{
		APIURL:      DefaultAPIURL,
		StoragePath: DefaultStoragePath,
		LogLevel:    "warn",
		Config:      DefaultClientConfig,
	}

	var fl ClientOptions
	fs.StringVar(&fl.APIURL, "url", opts.APIURL, "task API base URL")
	fs.StringVar(&fl.StoragePath, "storage", opts.StoragePath, "local storage file")
	fs.StringVar(&fl.CAFile, "ca", "", "path to CA cert for https APIs")
	fs.Var(&fl.Timeout, "timeout", "request timeout, e.g. 10s")
	fs.StringVar(&fl.LogLevel, "log-level", opts.LogLevel, "log level")
	fs.StringVar(&fl.Config, "config", opts.Config, "path to TOML config file")
	fs.BoolVar(&fl.ShowVersion, "version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	switch {
	case set["config"]:
		opts.Config = fl.Config
	case os.Getenv("TODO_CONFIG") != "":
		opts.Config = os.Getenv("TODO_CONFIG")
	}
	if _, err := os.Stat(opts.Config); err == nil {
		if _, err := toml.DecodeFile(opts.Config, opts); err != nil {
			return nil, fmt.Errorf("error while parsing config file: %w", err)
		}
	} else if set["config"] {
		return nil, fmt.Errorf("config file: %w", err)
	}

	if v := os.Getenv("TODO_API_URL"); v != "" {
		opts.APIURL = v
	}
	if v := os.Getenv("TODO_STORAGE"); v != "" {
		opts.StoragePath = v
	}
	if v := os.Getenv("TODO_CA_FILE"); v != "" {
		opts.CAFile = v
	}
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}

	if set["url"] {
		opts.APIURL = fl.APIURL
	}
	if set["storage"] {
		opts.StoragePath = fl.StoragePath
	}
	if set["ca"] {
		opts.CAFile = fl.CAFile
	}
	if set["timeout"] {
		opts.Timeout = fl.Timeout
	}
	if set["log-level"] {
		opts.LogLevel = fl.LogLevel
	}
	opts.ShowVersion = fl.ShowVersion

	if opts.Timeout < 0 {
		return nil, errors.New("timeout must not be negative")
	}
	return opts, nil
}
