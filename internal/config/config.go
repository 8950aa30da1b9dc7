// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIBaseURL is the remote checklist API.
const DefaultAPIBaseURL = "http://94.74.86.174:8080/api"

// Storage backends accepted by the Storage option.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the web server's listening address (ip:port).
	Port string `json:"server_address"`

	// APIBaseURL is the base URL of the remote checklist REST API.
	APIBaseURL string `json:"api_base_url"`

	// Storage selects the durable session storage backend.
	Storage string `json:"storage"`

	// DatabaseDSN is the postgres DSN or the sqlite file path.
	DatabaseDSN string `json:"database_dsn"`

	// StorageFile is the JSON file used by the "file" backend.
	StorageFile string `json:"storage_file"`

	// Retention bounds how long idle storage entries are kept.
	Retention time.Duration `json:"-"`

	// LogLevel is passed to logger.Init.
	LogLevel string `json:"log_level"`

	// LogFile is where the terminal client writes logs.
	LogFile string `json:"log_file"`

	// CookieSecure marks the session cookies Secure.
	CookieSecure bool `json:"cookie_secure"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// DevTLS makes the web server generate and use a development
	// certificate under CertDir when TLSCert/TLSKey are not given.
	DevTLS  bool   `json:"dev_tls"`
	CertDir string `json:"cert_dir"`

	// APICAFile, APICertFile and APIKeyFile configure TLS towards the
	// remote API: a private CA and an optional client certificate.
	APICAFile   string `json:"api_ca_file"`
	APICertFile string `json:"api_cert_file"`
	APIKeyFile  string `json:"api_key_file"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Parse parses os.Args, the optional config file and environment variables.
// Errors are fatal to the caller's process, matching flag.ExitOnError.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// ParseArgs parses the given command-line arguments, then overlays the JSON
// config file and finally the environment. A .env file in the working
// directory is loaded first; variables already set are not overridden.
func ParseArgs(args []string) (*Options, error) {
	_ = godotenv.Load()

	options := &Options{}
	fs := flag.NewFlagSet("gophtodo", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.APIBaseURL, "api", DefaultAPIBaseURL, "remote API base URL")
	fs.StringVar(&options.Storage, "storage", StorageMemory, "session storage: memory | file | postgres | sqlite")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address (postgres DSN or sqlite path)")
	fs.StringVar(&options.StorageFile, "f", "storage.json", "storage file for the file backend")
	fs.DurationVar(&options.Retention, "retention", 7*24*time.Hour, "idle storage entry retention")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.LogFile, "log-file", "gophtodo.log", "log file for the terminal client")
	fs.BoolVar(&options.CookieSecure, "cookie-secure", false, "set Secure on cookies")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.BoolVar(&options.DevTLS, "dev-tls", false, "serve HTTPS with a generated development certificate")
	fs.StringVar(&options.CertDir, "cert-dir", "certs", "directory of the development certificate")
	fs.StringVar(&options.APICAFile, "api-ca", "", "CA certificate trusted for the remote API")
	fs.StringVar(&options.APICertFile, "api-cert", "", "client certificate presented to the remote API")
	fs.StringVar(&options.APIKeyFile, "api-key", "", "client key presented to the remote API")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
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
	if v := os.Getenv("API_BASE_URL"); v != "" {
		options.APIBaseURL = v
	}
	if v := os.Getenv("STORAGE"); v != "" {
		options.Storage = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		options.CookieSecure = b
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		options.TLSCert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		options.TLSKey = v
	}
	if v := os.Getenv("API_CA_FILE"); v != "" {
		options.APICAFile = v
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Validate reports inconsistent option combinations.
func (o *Options) Validate() error {
	switch o.Storage {
	case StorageMemory, StorageFile:
	case StoragePostgres, StorageSQLite:
		if o.DatabaseDSN == "" {
			return fmt.Errorf("storage %q requires a database DSN", o.Storage)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", o.Storage)
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if (o.APICertFile == "") != (o.APIKeyFile == "") {
		return errors.New("api-cert and api-key must be set together")
	}
	if o.APIBaseURL == "" {
		return errors.New("api base URL must not be empty")
	}
	return nil
}

// TLSEnabled reports whether the web server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
