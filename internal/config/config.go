package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SMTP struct {
	Host   string
	Port   int
	Secure bool // implicit TLS (port 465 style)
	User   string
	Pass   string
	From   string
}

type Config struct {
	Port            string
	SeedFile        string // empty: embedded catalog
	DBDSN           string // empty: volatile memory store
	CascadeProducts bool
	LogLevel        string
	LogFile         string
	TemplatesDir    string
	StaticDir       string

	SMTP     SMTP
	NotifyTo string

	OutboxInterval    time.Duration
	OutboxMaxAttempts int

	// Requests per minute and per IP. Zero disables the limiter.
	RateLimit     int
	FormRateLimit int
}

// LoadDotEnv reads path (".env" when empty) into the environment. Variables
// already set win. It reports whether a file was loaded.
func LoadDotEnv(path string) bool {
	if path == "" {
		path = ".env"
	}
	return godotenv.Load(path) == nil
}

// Load reads the configuration from the environment, with defaults.
func Load() Config {
	cfg := Config{
		Port:            str("PORT", "8080"),
		SeedFile:        str("SEED_FILE", ""),
		DBDSN:           str("DB_DSN", ""),
		CascadeProducts: boolean("CATALOG_CASCADE_PRODUCTS", false),
		LogLevel:        str("LOG_LEVEL", "info"),
		LogFile:         str("LOG_FILE", ""),
		TemplatesDir:    str("TEMPLATES_DIR", "./web/templates"),
		StaticDir:       str("STATIC_DIR", "./web/static"),
		SMTP: SMTP{
			Host:   str("SMTP_HOST", ""),
			Port:   integer("SMTP_PORT", 587),
			Secure: boolean("SMTP_SECURE", false),
			User:   str("SMTP_USER", ""),
			Pass:   str("SMTP_PASS", ""),
			From:   str("SMTP_FROM", "no-reply@ppe-catalog.local"),
		},
		OutboxInterval:    duration("OUTBOX_INTERVAL", 5*time.Second),
		OutboxMaxAttempts: integer("OUTBOX_MAX_ATTEMPTS", 5),
		RateLimit:         integer("RATE_LIMIT", 120),
		FormRateLimit:     integer("FORM_RATE_LIMIT", 10),
	}
	// Notifications land in the sender's mailbox unless told otherwise.
	cfg.NotifyTo = str("NOTIFY_TO", cfg.SMTP.From)
	if cfg.OutboxMaxAttempts < 1 {
		cfg.OutboxMaxAttempts = 1
	}
	if cfg.OutboxInterval <= 0 {
		cfg.OutboxInterval = 5 * time.Second
	}
	return cfg
}

// Fields is the loggable view of cfg. Secrets are left out.
func (c Config) Fields() map[string]any {
	store := "memory"
	if c.DBDSN != "" {
		store = "sqlite"
	}
	return map[string]any{
		"port":             c.Port,
		"store":            store,
		"seed_file":        c.SeedFile,
		"cascade_products": c.CascadeProducts,
		"log_level":        c.LogLevel,
		"log_file":         c.LogFile,
		"templates_dir":    c.TemplatesDir,
		"static_dir":       c.StaticDir,
		"smtp_host":        c.SMTP.Host,
		"smtp_port":        c.SMTP.Port,
		"smtp_secure":      c.SMTP.Secure,
		"notify_to":        c.NotifyTo,
		"outbox_interval":  c.OutboxInterval.String(),
		"outbox_attempts":  c.OutboxMaxAttempts,
		"rate_limit":       c.RateLimit,
		"form_rate_limit":  c.FormRateLimit,
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	n, err := strconv.Atoi(str(key, ""))
	if err != nil {
		return def
	}
	return n
}

func boolean(key string, def bool) bool {
	b, err := strconv.ParseBool(str(key, ""))
	if err != nil {
		return def
	}
	return b
}

// duration accepts Go durations ("30s") or plain seconds ("30").
func duration(key string, def time.Duration) time.Duration {
	raw := str(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
