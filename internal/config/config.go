package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration sourced from the environment. It is
// constructed once at process start and threaded explicitly into the
// components that need it; nothing reads the environment after Load.
type Config struct {
	HTTPAddr string
	PGDSN    string

	AuthSecret string
	AuthIssuer string
	TokenTTL   time.Duration
	ResetTTL   time.Duration

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	ResetLinkBase string

	RateLimitPerSecond int
	RateLimitBurst     int
}

// Load reads a .env file when present, then the environment, and performs
// minimal validation.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:      fallback(os.Getenv("CASETRACK_HTTP_ADDR"), ":8080"),
		PGDSN:         strings.TrimSpace(os.Getenv("CASETRACK_PG_DSN")),
		AuthSecret:    strings.TrimSpace(os.Getenv("CASETRACK_AUTH_SECRET")),
		AuthIssuer:    fallback(os.Getenv("CASETRACK_AUTH_ISSUER"), "casetrack"),
		SMTPHost:      strings.TrimSpace(os.Getenv("CASETRACK_SMTP_HOST")),
		SMTPUsername:  strings.TrimSpace(os.Getenv("CASETRACK_SMTP_USERNAME")),
		SMTPPassword:  os.Getenv("CASETRACK_SMTP_PASSWORD"),
		MailFrom:      fallback(os.Getenv("CASETRACK_MAIL_FROM"), "noreply@casetrack.org"),
		ResetLinkBase: strings.TrimSpace(os.Getenv("CASETRACK_RESET_LINK_BASE")),
	}

	cfg.TokenTTL = durationSeconds(os.Getenv("CASETRACK_TOKEN_TTL_SECONDS"), 6000)
	cfg.ResetTTL = durationSeconds(os.Getenv("CASETRACK_RESET_TTL_SECONDS"), 900)
	cfg.SMTPPort = positiveInt(os.Getenv("CASETRACK_SMTP_PORT"), 587)
	cfg.RateLimitPerSecond = positiveInt(os.Getenv("CASETRACK_RATE_LIMIT_PER_SECOND"), 20)
	cfg.RateLimitBurst = positiveInt(os.Getenv("CASETRACK_RATE_LIMIT_BURST"), 40)

	if cfg.AuthSecret == "" {
		return Config{}, errors.New("CASETRACK_AUTH_SECRET is required")
	}
	if len(cfg.AuthSecret) < 16 {
		return Config{}, fmt.Errorf("CASETRACK_AUTH_SECRET is too short (%d bytes)", len(cfg.AuthSecret))
	}
	return cfg, nil
}

// MailConfigured reports whether an SMTP transport can be built.
func (c Config) MailConfigured() bool {
	return c.SMTPHost != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func durationSeconds(raw string, def int) time.Duration {
	return time.Duration(positiveInt(raw, def)) * time.Second
}

func positiveInt(raw string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v > 0 {
		return v
	}
	return def
}
