package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	SiteCode string
	LogLevel string
	Timezone string

	// Bookkeeping
	BookkeepingBackend string
	MorningTokenURL    string
	MorningAPIKey      string
	MorningSecret      string
	MorningIncomeURL   string
	MorningExpenseURL  string
	MorningPageSize    int
	MemoryFixturesDir  string
	ExpectationsFile   string

	// Report
	ReportSender        string
	ReportTo            []string
	ReportCc            []string
	IncomeDocLanguage   string
	ReportGreeting      string
	ReportSignature     string
	ReportAttachSummary bool
	DownloadTimeout     time.Duration

	// Delivery
	DeliveryBackend       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	SMTPInsecure          bool
	OutboxDir             string

	// Scheduled delivery
	AutoSend         bool
	AutoSendDay      int
	AutoSendInterval time.Duration

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

var (
	bookkeepingBackends = []string{"morning", "memory"}
	deliveryBackends    = []string{"gmail", "smtp", "outbox"}
)

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		SiteCode: getEnv("SITE_CODE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "Asia/Jerusalem"),

		BookkeepingBackend: getEnv("BOOKKEEPING_BACKEND", "morning"),
		MorningTokenURL:    getEnv("MORNING_TOKEN_URL", ""),
		MorningAPIKey:      getEnv("MORNING_API_KEY", ""),
		MorningSecret:      getEnv("MORNING_SECRET", ""),
		MorningIncomeURL:   getEnv("MORNING_INCOME_URL", ""),
		MorningExpenseURL:  getEnv("MORNING_EXPENSE_URL", ""),
		MorningPageSize:    getEnvInt("MORNING_PAGE_SIZE", 100),
		MemoryFixturesDir:  getEnv("MEMORY_FIXTURES_DIR", "./data/fixtures"),
		ExpectationsFile:   getEnv("EXPECTATIONS_FILE", ""),

		ReportSender:        getEnv("REPORT_SENDER", ""),
		ReportTo:            getEnvList("REPORT_TO"),
		ReportCc:            getEnvList("REPORT_CC"),
		IncomeDocLanguage:   getEnv("INCOME_DOC_LANGUAGE", "he"),
		ReportGreeting:      getEnv("REPORT_GREETING", "שלום"),
		ReportSignature:     getEnv("REPORT_SIGNATURE", ""),
		ReportAttachSummary: getEnvBool("REPORT_ATTACH_SUMMARY", false),
		DownloadTimeout:     getEnvDuration("DOWNLOAD_TIMEOUT", 60*time.Second),

		DeliveryBackend:       getEnv("DELIVERY_BACKEND", "gmail"),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		SMTPInsecure:          getEnvBool("SMTP_INSECURE", false),
		OutboxDir:             getEnv("OUTBOX_DIR", "./data/outbox"),

		AutoSend:         getEnvBool("AUTO_SEND", false),
		AutoSendDay:      getEnvInt("AUTO_SEND_DAY", 5),
		AutoSendInterval: getEnvDuration("AUTO_SEND_INTERVAL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "rendiconto"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_delivered"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.SiteCode) == "" {
		errors = append(errors, "SITE_CODE is required")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if !slices.Contains(bookkeepingBackends, c.BookkeepingBackend) {
		errors = append(errors, fmt.Sprintf("invalid bookkeeping backend '%s': must be one of %v", c.BookkeepingBackend, bookkeepingBackends))
	}
	if c.BookkeepingBackend == "morning" {
		for _, f := range []struct{ name, value string }{
			{"MORNING_TOKEN_URL", c.MorningTokenURL},
			{"MORNING_INCOME_URL", c.MorningIncomeURL},
			{"MORNING_EXPENSE_URL", c.MorningExpenseURL},
		} {
			if f.value == "" {
				errors = append(errors, fmt.Sprintf("%s is required when using morning backend", f.name))
				continue
			}
			if u, err := url.Parse(f.value); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid %s '%s': must be an http(s) URL", f.name, f.value))
			}
		}
		if c.MorningAPIKey == "" {
			errors = append(errors, "MORNING_API_KEY is required when using morning backend")
		}
		if c.MorningSecret == "" {
			errors = append(errors, "MORNING_SECRET is required when using morning backend")
		}
		if c.MorningPageSize < 1 || c.MorningPageSize > 500 {
			errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 500", c.MorningPageSize))
		}
	}

	if c.ExpectationsFile != "" {
		if _, err := os.Stat(c.ExpectationsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("expectations file does not exist: %s", c.ExpectationsFile))
		}
	}

	if _, err := mail.ParseAddress(c.ReportSender); err != nil {
		errors = append(errors, fmt.Sprintf("invalid REPORT_SENDER '%s'", c.ReportSender))
	}
	if len(c.ReportTo) == 0 {
		errors = append(errors, "REPORT_TO is required")
	}
	for _, addr := range append(append([]string(nil), c.ReportTo...), c.ReportCc...) {
		if _, err := mail.ParseAddress(addr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid recipient address '%s'", addr))
		}
	}
	if c.IncomeDocLanguage == "" {
		errors = append(errors, "INCOME_DOC_LANGUAGE cannot be empty")
	}
	if c.DownloadTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid download timeout %v: must be at least 1 second", c.DownloadTimeout))
	}

	if !slices.Contains(deliveryBackends, c.DeliveryBackend) {
		errors = append(errors, fmt.Sprintf("invalid delivery backend '%s': must be one of %v", c.DeliveryBackend, deliveryBackends))
	}
	switch c.DeliveryBackend {
	case "gmail":
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for gmail delivery")
		}
		if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for gmail delivery")
		}
		if c.GoogleOAuthClientFile != "" {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if c.GoogleOAuthTokenFile != "" {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	case "smtp":
		if c.SMTPHost == "" {
			errors = append(errors, "SMTP_HOST is required for smtp delivery")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
	case "outbox":
		if c.OutboxDir == "" {
			errors = append(errors, "OUTBOX_DIR cannot be empty for outbox delivery")
		}
	}

	if c.AutoSend {
		// Past the 10th the calendar already points at the next, open period.
		if c.AutoSendDay < 1 || c.AutoSendDay > 10 {
			errors = append(errors, fmt.Sprintf("invalid AUTO_SEND_DAY %d: must be between 1 and 10", c.AutoSendDay))
		}
		if c.AutoSendInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid AUTO_SEND_INTERVAL %v: must be at least 1 minute", c.AutoSendInterval))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// OAuthClientJSON returns the inline client JSON or the content of the file.
func (c *Config) OAuthClientJSON() ([]byte, error) {
	return inlineOrFile(c.GoogleOAuthClientJSON, c.GoogleOAuthClientFile, "oauth client")
}

// OAuthTokenJSON returns the inline token JSON or the content of the file.
func (c *Config) OAuthTokenJSON() ([]byte, error) {
	return inlineOrFile(c.GoogleOAuthTokenJSON, c.GoogleOAuthTokenFile, "oauth token")
}

func inlineOrFile(inline, path, what string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, fmt.Errorf("missing %s", what)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", what, err)
	}
	return b, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
