// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration values for the service.
type Config struct {
	// HTTP listener
	HTTPPort      int
	PublicBaseURL string

	// Profile contents and signing
	OrgName string
	SSLCert string
	SSLKey  string

	// App Store Connect
	ASCIssuerID   string
	ASCKeyID      string
	ASCPrivateKey string
	ASCAPIBase    string

	// Build pipeline
	GitHubOwner      string
	GitHubRepo       string
	GitHubWorkflowID string
	GitHubToken      string
	GitHubRef        string
	GitHubAPIBase    string

	// Mail
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
	AppName   string

	// Operator and pipeline credentials
	AdminUser           string
	AdminPass           string
	AdminPassHash       string
	BuildCallbackSecret string

	// Persistence
	Store       string
	DatabaseURL string

	// Background work
	WorkerConcurrency int
	WorkerTaskTimeout time.Duration

	// Logging and telemetry
	LogLevel     string
	LogFormat    string
	OTELEndpoint string
}

// keys maps config keys to their environment variable names.
var keys = map[string]string{
	"port":                  "PORT",
	"public_base_url":       "PUBLIC_BASE_URL",
	"org_name":              "ORG_NAME",
	"ssl_cert":              "SSL_CERT",
	"ssl_key":               "SSL_KEY",
	"asc_issuer_id":         "ASC_ISSUER_ID",
	"asc_key_id":            "ASC_KEY_ID",
	"asc_private_key":       "ASC_PRIVATE_KEY",
	"asc_api_base":          "ASC_API_BASE",
	"github_owner":          "GITHUB_OWNER",
	"github_repo":           "GITHUB_REPO",
	"github_workflow_id":    "GITHUB_WORKFLOW_ID",
	"github_token":          "GITHUB_TOKEN",
	"github_ref":            "GITHUB_REF",
	"github_api_base":       "GITHUB_API_BASE",
	"smtp_host":             "SMTP_HOST",
	"smtp_port":             "SMTP_PORT",
	"smtp_user":             "SMTP_USER",
	"smtp_pass":             "SMTP_PASS",
	"email_from":            "EMAIL_FROM",
	"app_name":              "APP_NAME",
	"admin_user":            "ADMIN_USER",
	"admin_pass":            "ADMIN_PASS",
	"admin_pass_hash":       "ADMIN_PASS_HASH",
	"build_callback_secret": "BUILD_CALLBACK_SECRET",
	"store":                 "STORE",
	"database_url":          "DATABASE_URL",
	"worker_concurrency":    "WORKER_CONCURRENCY",
	"worker_task_timeout":   "WORKER_TASK_TIMEOUT",
	"log_level":             "LOG_LEVEL",
	"log_format":            "LOG_FORMAT",
	"otel_endpoint":         "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("public_base_url", "http://localhost:3000")
	v.SetDefault("org_name", "Errakui")
	v.SetDefault("asc_api_base", "https://api.appstoreconnect.apple.com")
	v.SetDefault("github_workflow_id", "build-adhoc.yml")
	v.SetDefault("github_ref", "main")
	v.SetDefault("github_api_base", "https://api.github.com")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("app_name", "Errakui")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("worker_task_timeout", 2*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration. path names a YAML file; when empty,
// adhocdist.yaml in the working directory is used if present. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("adhocdist")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:            v.GetInt("port"),
		PublicBaseURL:       strings.TrimRight(v.GetString("public_base_url"), "/"),
		OrgName:             v.GetString("org_name"),
		SSLCert:             v.GetString("ssl_cert"),
		SSLKey:              v.GetString("ssl_key"),
		ASCIssuerID:         v.GetString("asc_issuer_id"),
		ASCKeyID:            v.GetString("asc_key_id"),
		ASCPrivateKey:       v.GetString("asc_private_key"),
		ASCAPIBase:          v.GetString("asc_api_base"),
		GitHubOwner:         v.GetString("github_owner"),
		GitHubRepo:          v.GetString("github_repo"),
		GitHubWorkflowID:    v.GetString("github_workflow_id"),
		GitHubToken:         v.GetString("github_token"),
		GitHubRef:           v.GetString("github_ref"),
		GitHubAPIBase:       v.GetString("github_api_base"),
		SMTPHost:            v.GetString("smtp_host"),
		SMTPPort:            v.GetInt("smtp_port"),
		SMTPUser:            v.GetString("smtp_user"),
		SMTPPass:            v.GetString("smtp_pass"),
		EmailFrom:           v.GetString("email_from"),
		AppName:             v.GetString("app_name"),
		AdminUser:           v.GetString("admin_user"),
		AdminPass:           v.GetString("admin_pass"),
		AdminPassHash:       v.GetString("admin_pass_hash"),
		BuildCallbackSecret: v.GetString("build_callback_secret"),
		Store:               strings.ToLower(v.GetString("store")),
		DatabaseURL:         v.GetString("database_url"),
		WorkerConcurrency:   v.GetInt("worker_concurrency"),
		WorkerTaskTimeout:   v.GetDuration("worker_task_timeout"),
		LogLevel:            v.GetString("log_level"),
		LogFormat:           v.GetString("log_format"),
		OTELEndpoint:        v.GetString("otel_endpoint"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed values.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535 (env: PORT), got %d", c.HTTPPort))
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("smtp_port must be between 1 and 65535 (env: SMTP_PORT), got %d", c.SMTPPort))
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required (env: DATABASE_URL)"))
		}
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q (env: STORE), got %q", StoreMemory, StorePostgres, c.Store))
	}
	if c.WorkerConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("worker_concurrency must be positive (env: WORKER_CONCURRENCY), got %d", c.WorkerConcurrency))
	}
	if c.WorkerTaskTimeout <= 0 {
		errs = append(errs, errors.New("worker_task_timeout must be a positive duration (env: WORKER_TASK_TIMEOUT)"))
	}
	if (c.SSLCert == "") != (c.SSLKey == "") {
		errs = append(errs, errors.New("ssl_cert and ssl_key must be set together (env: SSL_CERT, SSL_KEY)"))
	}

	return errors.Join(errs...)
}

// VendorEnabled reports whether App Store Connect credentials are present.
func (c *Config) VendorEnabled() bool {
	return c.ASCIssuerID != "" && c.ASCKeyID != "" && c.ASCPrivateKey != ""
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// Warnings lists integrations that are not configured. The service starts
// without them but the corresponding step is skipped or fails at runtime.
func (c *Config) Warnings() []string {
	var w []string
	if !c.VendorEnabled() {
		w = append(w, "ASC_ISSUER_ID, ASC_KEY_ID or ASC_PRIVATE_KEY not set: vendor device registration is skipped")
	}
	if c.GitHubOwner == "" || c.GitHubRepo == "" || c.GitHubToken == "" {
		w = append(w, "GITHUB_OWNER, GITHUB_REPO or GITHUB_TOKEN not set: build triggers will fail")
	}
	if !c.MailEnabled() {
		w = append(w, "SMTP_HOST not set: download links are logged instead of emailed")
	} else if c.EmailFrom == "" {
		w = append(w, "EMAIL_FROM not set: the relay may reject messages")
	}
	if c.SSLCert == "" {
		w = append(w, "SSL_CERT and SSL_KEY not set: enrollment profiles are served unsigned")
	}
	if c.AdminPassHash == "" && c.AdminPass == "admin" {
		w = append(w, "admin password is the default: set ADMIN_PASS or ADMIN_PASS_HASH")
	}
	if c.BuildCallbackSecret == "" {
		w = append(w, "BUILD_CALLBACK_SECRET not set: /build-completed accepts unauthenticated calls")
	}
	return w
}
