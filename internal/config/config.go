package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	SessionCookie string
	SecureCookies bool

	DataBackend string
	DBConn      string

	HMACSecret    string
	EncryptionKey string

	PINAttemptsPerMinute int
	RedisURL             string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CardExpirySchedule string
	StorageBucket      string
	MaxUploadBytes     int64
}

// NewConfig loads configuration from environment variables, reading a .env file first when present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		SessionCookie: getEnv("SESSION_COOKIE", "sb-access-token"),
		SecureCookies: getEnvBool("SECURE_COOKIES", true),

		DataBackend: getEnv("DATA_BACKEND", BackendREST),
		DBConn:      getEnv("DB_CONN", ""),

		HMACSecret:    getEnv("HMAC_SECRET", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		PINAttemptsPerMinute: getEnvInt("PIN_ATTEMPTS_PER_MINUTE", 5),
		RedisURL:             getEnv("REDIS_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@bank.local"),

		CardExpirySchedule: getEnv("CARD_EXPIRY_SCHEDULE", "0 3 * * *"),
		StorageBucket:      getEnv("STORAGE_BUCKET", "public"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and their combinations
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("HMAC_SECRET is required")
	}
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	switch c.DataBackend {
	case BackendREST:
	case BackendPostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required when DATA_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown DATA_BACKEND %q", c.DataBackend)
	}
	if c.PINAttemptsPerMinute <= 0 {
		return fmt.Errorf("PIN_ATTEMPTS_PER_MINUTE must be positive")
	}
	return nil
}

// SMTPEnabled reports whether outbound email is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}
