package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultItemDomainHint = "You are knowledgeable in Australian Construction Naming Standards. " +
	"Be aware that some items may have alternative names, for example, dump truck is Moxy in Australia."

type Config struct {
	DBPath    string
	OutputDir string

	CatalogSource       string
	CatalogAPIBaseURL   string
	CatalogAPIToken     string
	CatalogRateLimitRPS int
	CatalogTimeoutMs    int
	CatalogMaxAttempts  int

	MatcherProvider          string
	OpenAIAPIKey             string
	OpenAIBaseURL            string
	OpenAIModel              string
	GeminiAPIKey             string
	GeminiModel              string
	MatcherTimeoutMs         int
	MatcherRateLimitRPS      float64
	MatcherBurst             int
	MatcherSupplierMaxTokens int
	MatcherItemMaxTokens     int
	MatcherTemperature       float64
	MatcherNoMatchToken      string
	MatcherItemDomainHint    string

	ItemConcurrency    int
	ItemAttempts       int
	ItemRetryBackoffMs int

	InboxDir            string
	ListenerIntervalSec int
	ListenerBatch       int
	ListenerAutoExport  bool
	ListenerConcurrency int

	// MailProvider feeds the inbox from a mailbox before each listener cycle.
	// Empty disables mail fetching.
	MailProvider string
	MailLabel    string
	MailFetchMax int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	HTTPAddr         string
	HTTPDebug        bool
	HTTPMaxUploadMiB int
	LogLevel         string
	LogFormat        string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "catalog.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		CatalogSource:       strings.ToLower(getEnv("CATALOG_SOURCE", "http")),
		CatalogAPIBaseURL:   getEnv("CATALOG_API_BASE_URL", "http://localhost:3000"),
		CatalogAPIToken:     getEnv("CATALOG_API_TOKEN", ""),
		CatalogRateLimitRPS: getEnvInt("CATALOG_RATE_LIMIT_RPS", 10),
		CatalogTimeoutMs:    getEnvInt("CATALOG_TIMEOUT_MS", 10000),
		CatalogMaxAttempts:  getEnvInt("CATALOG_MAX_ATTEMPTS", 3),

		MatcherProvider:          strings.ToLower(getEnv("MATCHER_PROVIDER", "openai")),
		OpenAIAPIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:            getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:              getEnv("OPENAI_MODEL", "gpt-4"),
		GeminiAPIKey:             getEnv("GEMINI_API_KEY", ""),
		GeminiModel:              getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		MatcherTimeoutMs:         getEnvInt("MATCHER_TIMEOUT_MS", 30000),
		MatcherRateLimitRPS:      getEnvFloat("MATCHER_RATE_LIMIT_RPS", 3),
		MatcherBurst:             getEnvInt("MATCHER_BURST", 5),
		MatcherSupplierMaxTokens: getEnvInt("MATCHER_SUPPLIER_MAX_TOKENS", 50),
		MatcherItemMaxTokens:     getEnvInt("MATCHER_ITEM_MAX_TOKENS", 150),
		MatcherTemperature:       getEnvFloat("MATCHER_TEMPERATURE", 0),
		MatcherNoMatchToken:      getEnv("MATCHER_NO_MATCH_TOKEN", "None"),
		MatcherItemDomainHint:    getEnv("MATCHER_ITEM_DOMAIN_HINT", defaultItemDomainHint),

		ItemConcurrency:    getEnvInt("RECONCILE_ITEM_CONCURRENCY", 4),
		ItemAttempts:       getEnvInt("RECONCILE_ITEM_ATTEMPTS", 2),
		ItemRetryBackoffMs: getEnvInt("RECONCILE_RETRY_BACKOFF_MS", 500),

		InboxDir:            getEnv("INBOX_DIR", filepath.Join(cwd, "inbox")),
		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 30),
		ListenerBatch:       getEnvInt("LISTENER_BATCH", 20),
		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", true),
		ListenerConcurrency: getEnvInt("LISTENER_CONCURRENCY", 2),

		MailProvider: strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", ""))),
		MailLabel:    getEnv("MAIL_LABEL", "INBOX"),
		MailFetchMax: getEnvInt("MAIL_FETCH_MAX", 20),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		HTTPDebug:        getEnvBool("HTTP_DEBUG", false),
		HTTPMaxUploadMiB: getEnvInt("HTTP_MAX_UPLOAD_MIB", 20),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// RequireMatcher checks that the credentials for the selected provider are set.
func (c Config) RequireMatcher() error {
	switch c.MatcherProvider {
	case "openai":
		return c.Require("OPENAI_API_KEY", c.OpenAIAPIKey)
	case "gemini":
		return c.Require("GEMINI_API_KEY", c.GeminiAPIKey)
	default:
		return fmt.Errorf("unsupported MATCHER_PROVIDER: %s", c.MatcherProvider)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
