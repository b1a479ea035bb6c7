package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	// Recovery knobs. These are inputs to the core, not internal constants.
	CodeLength    int           // digits in a passcode
	PasscodeTTL   time.Duration // validity window of an issued passcode
	MaxAttempts   int           // wrong guesses before permanent lockout
	IssueWindow   time.Duration // at most one issuance per address per window
	SweepInterval time.Duration // how often expired records are purged

	AllowedOrigins    []string // CORS allowed origins
	TrustProxyHeaders bool     // honor X-Forwarded-For/X-Real-Ip behind a trusted proxy
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts  string
	Passcodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:  getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Passcodes: getEnv("DYNAMO_TABLE_PASSCODES", "passcodes"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		CodeLength:    getEnvInt("OTP_CODE_LENGTH", 6),
		PasscodeTTL:   time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		MaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 3),
		IssueWindow:   time.Duration(getEnvInt("OTP_ISSUE_WINDOW_SECONDS", 60)) * time.Second,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,

		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
