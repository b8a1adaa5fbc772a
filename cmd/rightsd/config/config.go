// Package config loads rightsd settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the rightsd dashboard configuration.
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Ingest        IngestConfig
	Report        ReportConfig
	LLM           LLMConfig
	Notifications NotificationConfig

	SeedDemoData bool `env:"RIGHTS_SEED_DEMO" envDefault:"true"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"8080"`
	// BaseURL is used in notification download links.
	BaseURL string `env:"RIGHTS_BASE_URL"`
}

// AuthConfig holds the password gate settings.
type AuthConfig struct {
	Password      string        `env:"RIGHTS_APP_PASSWORD" envDefault:"demo123"`
	SessionSecret string        `env:"RIGHTS_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"RIGHTS_SESSION_TTL" envDefault:"12h"`
}

// IngestConfig holds contract ingest settings.
type IngestConfig struct {
	MaxDocumentBytes int64         `env:"RIGHTS_INGEST_MAX_BYTES" envDefault:"10485760"`
	Timeout          time.Duration `env:"RIGHTS_INGEST_TIMEOUT" envDefault:"3m"`
	ExpiringDays     int           `env:"RIGHTS_EXPIRING_DAYS" envDefault:"90"`
}

// ReportConfig holds report generation settings.
type ReportConfig struct {
	ArtifactDir string `env:"RIGHTS_ARTIFACT_DIR" envDefault:"./artifacts"`
	EnableAsync bool   `env:"RIGHTS_REPORT_ASYNC" envDefault:"true"`
	// MaxRows is the sync/async threshold when async is enabled.
	MaxRows     int  `env:"RIGHTS_REPORT_MAX_ROWS" envDefault:"500"`
	PDFEnabled  bool `env:"RIGHTS_PDF_ENABLED" envDefault:"false"`
	PDFHeadless bool `env:"RIGHTS_PDF_HEADLESS" envDefault:"true"`
}

// LLMConfig holds extraction model settings.
type LLMConfig struct {
	BaseURL     string        `env:"RIGHTS_LLM_BASE_URL"`
	APIKey      string        `env:"RIGHTS_LLM_API_KEY"`
	Model       string        `env:"RIGHTS_LLM_MODEL"`
	Timeout     time.Duration `env:"RIGHTS_LLM_TIMEOUT" envDefault:"2m"`
	MaxTokens   int           `env:"RIGHTS_LLM_MAX_TOKENS"`
	Temperature float64       `env:"RIGHTS_LLM_TEMPERATURE"`
}

// NotificationConfig holds report-ready notification settings.
type NotificationConfig struct {
	Enabled    bool     `env:"RIGHTS_NOTIFY_ENABLED" envDefault:"false"`
	Recipients []string `env:"RIGHTS_NOTIFY_RECIPIENTS" envSeparator:","`
	Channels   []string `env:"RIGHTS_NOTIFY_CHANNELS" envSeparator:","`
	SMTP       SMTPConfig
}

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host          string `env:"RIGHTS_SMTP_HOST"`
	Port          int    `env:"RIGHTS_SMTP_PORT" envDefault:"587"`
	From          string `env:"RIGHTS_SMTP_FROM"`
	Username      string `env:"RIGHTS_SMTP_USERNAME"`
	Password      string `env:"RIGHTS_SMTP_PASSWORD"`
	UseTLS        bool   `env:"RIGHTS_SMTP_TLS"`
	UseStartTLS   bool   `env:"RIGHTS_SMTP_STARTTLS"`
	SkipTLSVerify bool   `env:"RIGHTS_SMTP_SKIP_TLS_VERIFY"`
	AuthDisabled  bool   `env:"RIGHTS_SMTP_AUTH_DISABLED"`
	PlainOnly     bool   `env:"RIGHTS_SMTP_PLAIN_ONLY"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
