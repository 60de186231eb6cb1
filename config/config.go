package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	LogProduction  bool

	BotToken          string
	SessionMaxAge     time.Duration
	AdminServiceToken string

	LedgerTxTimeout   time.Duration
	LedgerLockTimeout time.Duration
	LedgerMaxAttempts int

	PaymentGateway     string // "mock" or "http"
	PaymentAPIURL      string
	PaymentAPIKey      string
	SettlementInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string

	TelegramNotify bool

	Rules Rules
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "5200"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		LogProduction:  getEnvAsBool("LOG_PRODUCTION", false),

		BotToken:          getEnv("BOT_TOKEN", ""),
		SessionMaxAge:     getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),
		AdminServiceToken: getEnv("ADMIN_SERVICE_TOKEN", ""),

		LedgerTxTimeout:   getEnvAsDuration("LEDGER_TX_TIMEOUT", 5*time.Second),
		LedgerLockTimeout: getEnvAsDuration("LEDGER_LOCK_TIMEOUT", 2*time.Second),
		LedgerMaxAttempts: getEnvAsInt("LEDGER_MAX_ATTEMPTS", 3),

		PaymentGateway:     strings.ToLower(getEnv("PAYMENT_GATEWAY", "mock")),
		PaymentAPIURL:      getEnv("PAYMENT_API_URL", ""),
		PaymentAPIKey:      getEnv("PAYMENT_API_KEY", ""),
		SettlementInterval: getEnvAsDuration("SETTLEMENT_INTERVAL", 30*time.Second),

		R2AccountID:       getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:          getEnv("R2_BUCKET_NAME", ""),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),

		TelegramNotify: getEnvAsBool("TELEGRAM_NOTIFY", false),

		Rules: rulesFromEnv(),
	}
}

// ArchiveEnabled reports whether the R2 game-log archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strVal := getEnv(key, "")
	if val, err := strconv.ParseBool(strVal); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strVal := getEnv(key, "")
	if val, err := strconv.Atoi(strVal); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strVal := getEnv(key, "")
	if val, err := time.ParseDuration(strVal); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	val := getEnv(key, "")
	if val == "" {
		return defaultValue
	}
	parts := strings.Split(val, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
