// Package config reads woordjes settings from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLen = 32

type Config struct {
	Port           string
	TrustedProxies []string // CIDRs allowed to set X-Forwarded-For, on top of private ranges
	RateLimitRPM   int      // POSTs per minute per client

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Sessions
	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	// Game
	RoundSize int
	GameTTL   time.Duration

	// AMQP is optional; without it sessions reach Sheets through the sweep.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export and import
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	MedalScheduleHour int // UTC

	LogLevel  string
	LogFormat string
}

// Load never fails. Unparsable numbers and durations fall back to their
// defaults and Validate reports what is left.
func Load() *Config {
	return &Config{
		Port:           env("PORT", "8081"),
		TrustedProxies: envList("TRUSTED_PROXIES"),
		RateLimitRPM:   envInt("RATE_LIMIT_RPM", 60),

		DataBackend:  env("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: env("SQLITE_DB_PATH", "./data/woordjes.db"),
		DatabaseURL:  env("DATABASE_URL", ""),

		JWTSecret:    env("JWT_SECRET", ""),
		SessionTTL:   envDuration("SESSION_TTL", 7*24*time.Hour),
		CookieSecure: envBool("COOKIE_SECURE", false),

		RoundSize: envInt("ROUND_SIZE", 10),
		GameTTL:   envDuration("GAME_TTL", 30*time.Minute),

		AMQPURL:      env("AMQP_URL", ""),
		AMQPExchange: env("AMQP_EXCHANGE", "woordjes"),
		AMQPQueue:    env("AMQP_QUEUE", "session_events"),

		GoogleSpreadsheetID:   env("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       env("GOOGLE_SHEET_NAME", "Sessions"),
		GoogleOAuthClientFile: env("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  env("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: env("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  env("GOOGLE_OAUTH_TOKEN_JSON", ""),

		MedalScheduleHour: envInt("MEDAL_SCHEDULE_HOUR", 0),

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "text"),
	}
}

// SheetsEnabled reports whether a spreadsheet is configured for export.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// problems collects every validation failure so operators fix them in one go.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks every section and reports all failures together. It
// creates the SQLite directory when it is missing.
func (c *Config) Validate() error {
	var p problems
	c.checkServer(&p)
	c.checkStorage(&p)
	c.checkGame(&p)
	c.checkAMQP(&p)
	c.checkSheets(&p)

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		p.add("invalid log format '%s': must be 'text' or 'json'", c.LogFormat)
	}

	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
	}
	return nil
}

func (c *Config) checkServer(p *problems) {
	if port, err := strconv.Atoi(c.Port); err != nil {
		p.add("invalid port '%s': must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		p.add("invalid port %d: must be between 1 and 65535", port)
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			p.add("invalid trusted proxy '%s': must be a CIDR", cidr)
		}
	}
	if c.RateLimitRPM < 1 {
		p.add("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM)
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		p.add("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}
	if c.SessionTTL < time.Minute {
		p.add("invalid session TTL %v: must be at least 1 minute", c.SessionTTL)
	}
}

func (c *Config) checkStorage(p *problems) {
	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			p.add("SQLite database path cannot be empty when using sqlite backend")
			return
		}
		if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.add("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			p.add("DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			p.add("invalid DATABASE_URL: must be a postgres:// URL")
		}
	default:
		p.add("invalid data backend '%s': must be one of [postgres sqlite]", c.DataBackend)
	}
}

func (c *Config) checkGame(p *problems) {
	if c.RoundSize < 1 || c.RoundSize > 50 {
		p.add("invalid round size %d: must be between 1 and 50", c.RoundSize)
	}
	if c.GameTTL < time.Minute {
		p.add("invalid game TTL %v: must be at least 1 minute", c.GameTTL)
	}
	if c.MedalScheduleHour < 0 || c.MedalScheduleHour > 23 {
		p.add("invalid medal schedule hour %d: must be between 0 and 23", c.MedalScheduleHour)
	}
}

func (c *Config) checkAMQP(p *problems) {
	if c.AMQPURL == "" {
		return
	}
	if u, err := url.Parse(c.AMQPURL); err != nil {
		p.add("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		p.add("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if c.AMQPExchange == "" {
		p.add("AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		p.add("AMQP queue name cannot be empty when AMQP URL is provided")
	}
}

func (c *Config) checkSheets(p *problems) {
	if !c.SheetsEnabled() {
		return
	}
	if c.GoogleSheetName == "" {
		p.add("Google Sheet name is required when a spreadsheet is configured")
	}
	if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
		p.add("either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for Google Sheets")
	}
	if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
		p.add("either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for Google Sheets")
	}
	for label, path := range map[string]string{"client": c.GoogleOAuthClientFile, "token": c.GoogleOAuthTokenFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			p.add("Google OAuth %s file does not exist: %s", label, path)
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList splits a comma separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
