// Package config provides functionality for managing configuration options
// for the server and client using command-line flags, an optional JSON
// config file, a .env file and environment variables.
//
// Precedence, lowest first: flag defaults and values, JSON config file,
// environment (including variables loaded from .env).
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerOptions holds the configuration values for cmd/server.
type ServerOptions struct {
	// Addr defines the server's listening address (ip:port).
	Addr string
	// DatabaseDSN holds the Postgres connection string.
	DatabaseDSN string
	// JWTSecret signs and verifies HS256 access tokens.
	JWTSecret string
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// AdminEmails are given the admin role at signup.
	AdminEmails []string
	// CleanerInterval is how often soft-deleted leads are purged.
	CleanerInterval time.Duration
	// Retention is how long a soft-deleted lead is kept.
	Retention time.Duration
	// AllowedOrigins feeds the CORS middleware. Empty disables CORS.
	AllowedOrigins []string
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string
	// LogLevel is a zap level name.
	LogLevel string
	// Config is the path to the JSON config file.
	Config string
}

// ClientOptions holds the configuration values for cmd/client.
type ClientOptions struct {
	// BaseURL is the backend origin, e.g. http://localhost:8080.
	BaseURL string
	// PathPrefix is prepended to every API path, e.g. /api.
	PathPrefix string
	// StorageFile persists the session token.
	StorageFile string
	// HistoryFile keeps readline history. Empty disables it.
	HistoryFile string
	// LogFile receives client logs. Empty discards them.
	LogFile string
	// CAFile is an extra root CA for HTTPS backends.
	CAFile string
	// Timeout bounds every backend request.
	Timeout time.Duration
	// Config is the path to the JSON config file.
	Config string
}

// serverFile is the JSON config file layout for the server.
type serverFile struct {
	Addr            string   `json:"server_address"`
	DatabaseDSN     string   `json:"database_dsn"`
	JWTSecret       string   `json:"jwt_secret"`
	TokenTTL        string   `json:"token_ttl"`
	AdminEmails     []string `json:"admin_emails"`
	CleanerInterval string   `json:"cleaner_interval"`
	Retention       string   `json:"retention"`
	AllowedOrigins  []string `json:"allowed_origins"`
	TLSCert         string   `json:"tls_cert"`
	TLSKey          string   `json:"tls_key"`
	LogLevel        string   `json:"log_level"`
}

// clientFile is the JSON config file layout for the client.
type clientFile struct {
	BaseURL     string `json:"api_url"`
	PathPrefix  string `json:"api_prefix"`
	StorageFile string `json:"storage_file"`
	HistoryFile string `json:"history_file"`
	LogFile     string `json:"log_file"`
	CAFile      string `json:"ca_file"`
	Timeout     string `json:"timeout"`
}

// ParseServer parses args (without the program name) together with the
// environment into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	o := &ServerOptions{}
	var admins, origins string
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.StringVar(&o.Addr, "a", "localhost:8080", "run on ip:port server")
	flags.StringVar(&o.DatabaseDSN, "d", "", "db address")
	flags.StringVar(&o.JWTSecret, "jwt-secret", "", "HS256 signing secret")
	flags.DurationVar(&o.TokenTTL, "token-ttl", 24*time.Hour, "access token lifetime")
	flags.StringVar(&admins, "admins", "", "comma-separated emails granted the admin role")
	flags.DurationVar(&o.CleanerInterval, "cleaner-interval", time.Hour, "soft-delete cleaner interval")
	flags.DurationVar(&o.Retention, "retention", 30*24*time.Hour, "soft-deleted lead retention")
	flags.StringVar(&origins, "cors", "", "comma-separated allowed CORS origins")
	flags.StringVar(&o.TLSCert, "tls-cert", "", "TLS certificate file")
	flags.StringVar(&o.TLSKey, "tls-key", "", "TLS key file")
	flags.StringVar(&o.LogLevel, "log-level", "info", "log level")
	flags.StringVar(&o.Config, "config", "config.json", "path to config file")
	flags.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	o.AdminEmails = splitList(admins)
	o.AllowedOrigins = splitList(origins)

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	var file serverFile
	ok, err := readConfigFile(o.Config, &file)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := file.apply(o); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		o.AdminEmails = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}

	if o.JWTSecret == "" {
		return nil, errors.New("jwt secret is required (-jwt-secret or JWT_SECRET)")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return nil, errors.New("tls-cert and tls-key must be set together")
	}
	return o, nil
}

func (f serverFile) apply(o *ServerOptions) error {
	setString(&o.Addr, f.Addr)
	setString(&o.DatabaseDSN, f.DatabaseDSN)
	setString(&o.JWTSecret, f.JWTSecret)
	setString(&o.TLSCert, f.TLSCert)
	setString(&o.TLSKey, f.TLSKey)
	setString(&o.LogLevel, f.LogLevel)
	if len(f.AdminEmails) > 0 {
		o.AdminEmails = f.AdminEmails
	}
	if len(f.AllowedOrigins) > 0 {
		o.AllowedOrigins = f.AllowedOrigins
	}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"token_ttl", f.TokenTTL, &o.TokenTTL},
		{"cleaner_interval", f.CleanerInterval, &o.CleanerInterval},
		{"retention", f.Retention, &o.Retention},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
	}
	return nil
}

// ParseClient parses args (without the program name) together with the
// environment into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	o := &ClientOptions{}
	flags := flag.NewFlagSet("client", flag.ContinueOnError)
	flags.StringVar(&o.BaseURL, "a", "http://localhost:8080", "backend base URL")
	flags.StringVar(&o.PathPrefix, "prefix", "/api", "API path prefix")
	flags.StringVar(&o.StorageFile, "storage", defaultStorageFile(), "session storage file")
	flags.StringVar(&o.HistoryFile, "history", "", "command history file")
	flags.StringVar(&o.LogFile, "log", "", "log file (empty discards logs)")
	flags.StringVar(&o.CAFile, "ca", "", "extra root CA certificate (PEM)")
	flags.DurationVar(&o.Timeout, "timeout", 10*time.Second, "backend request timeout")
	flags.StringVar(&o.Config, "config", "", "path to config file")
	flags.StringVar(&o.Config, "c", "", "path to config file (shorthand)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	var file clientFile
	ok, err := readConfigFile(o.Config, &file)
	if err != nil {
		return nil, err
	}
	if ok {
		setString(&o.BaseURL, file.BaseURL)
		setString(&o.PathPrefix, file.PathPrefix)
		setString(&o.StorageFile, file.StorageFile)
		setString(&o.HistoryFile, file.HistoryFile)
		setString(&o.LogFile, file.LogFile)
		setString(&o.CAFile, file.CAFile)
		if err := setDuration(&o.Timeout, file.Timeout); err != nil {
			return nil, fmt.Errorf("config timeout: %w", err)
		}
	}

	if v := os.Getenv("REALTIVO_API_URL"); v != "" {
		o.BaseURL = v
	}
	if v, ok := os.LookupEnv("REALTIVO_API_PREFIX"); ok {
		o.PathPrefix = v
	}

	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.BaseURL == "" {
		return nil, errors.New("api url is required")
	}
	return o, nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error while loading .env: %w", err)
	}
	return nil
}

// readConfigFile decodes path into dst. A missing file is not an error.
func readConfigFile(path string, dst any) (bool, error) {
	if path == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("error while parsing config file: %w", err)
	}
	return true, nil
}

func defaultStorageFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "realtivo.json"
	}
	return filepath.Join(dir, "realtivo", "realtivo.json")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
