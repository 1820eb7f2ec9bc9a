package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "file:pgstay.db?_pragma=busy_timeout(5000)"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTTTL            = "24h"
	defaultWebhookSecret     = "change-me-webhook-secret"
	defaultPayoutKey         = "change-me-payout-key"
	defaultCashfreeBaseURL   = "https://sandbox.cashfree.com"
	defaultCashfreeVersion   = "2023-08-01"
	defaultGatewayTimeout    = "10s"
	defaultPaymentOrderTTL   = "30m"
	defaultCurrency          = "INR"
	defaultDocumentDir       = "./data/agreements"
	defaultPublicBaseURL     = "http://localhost:8080"
	defaultAgreementDuration = "6"
	defaultVerifyCacheTTL    = "10m"
	defaultSweepSchedule     = "0 */5 * * * *"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	JWTSecret               string
	JWTTTL                  time.Duration
	IdentityProvider        string
	FirebaseCredentialsFile string
	FirebaseProjectID       string

	Cashfree        CashfreeConfig
	PaymentOrderTTL time.Duration
	Currency        string

	DocumentStore string
	DocumentDir   string
	S3            S3Config

	PublicBaseURL           string
	AgreementDurationMonths int

	RedisURL       string
	VerifyCacheTTL time.Duration
	NATSURL        string

	SweepSchedule       string
	PayoutEncryptionKey string
	CORSAllowedOrigins  []string
}

type CashfreeConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	APIVersion    string
	WebhookSecret string
	ReturnURL     string
	Timeout       time.Duration
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.TrimSpace(getEnv("LOG_FORMAT", "text"))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_PROVIDER", "jwt")))
	cfg.FirebaseCredentialsFile = strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_FILE"))
	cfg.FirebaseProjectID = strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID"))

	cfg.Cashfree = CashfreeConfig{
		BaseURL:       strings.TrimRight(strings.TrimSpace(getEnv("CASHFREE_BASE_URL", defaultCashfreeBaseURL)), "/"),
		ClientID:      strings.TrimSpace(os.Getenv("CASHFREE_CLIENT_ID")),
		ClientSecret:  strings.TrimSpace(os.Getenv("CASHFREE_CLIENT_SECRET")),
		APIVersion:    strings.TrimSpace(getEnv("CASHFREE_API_VERSION", defaultCashfreeVersion)),
		WebhookSecret: strings.TrimSpace(getEnv("CASHFREE_WEBHOOK_SECRET", defaultWebhookSecret)),
		ReturnURL:     strings.TrimSpace(os.Getenv("PAYMENT_RETURN_URL")),
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(getEnv("CURRENCY", defaultCurrency)))

	cfg.DocumentStore = strings.ToLower(strings.TrimSpace(getEnv("DOCUMENT_STORE", "local")))
	cfg.DocumentDir = strings.TrimSpace(getEnv("DOCUMENT_DIR", defaultDocumentDir))
	cfg.S3 = S3Config{
		Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Region:          strings.TrimSpace(getEnv("S3_REGION", "ap-south-1")),
		Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		ForcePathStyle:  parseBoolEnv("S3_FORCE_PATH_STYLE", "false"),
	}

	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL)), "/")
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	cfg.SweepSchedule = strings.TrimSpace(getEnv("SWEEP_SCHEDULE", defaultSweepSchedule))
	cfg.PayoutEncryptionKey = strings.TrimSpace(getEnv("PAYOUT_ENCRYPTION_KEY", defaultPayoutKey))
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.Cashfree.Timeout, err = parseDurationEnv("GATEWAY_TIMEOUT", defaultGatewayTimeout); err != nil {
		return nil, err
	}
	if cfg.PaymentOrderTTL, err = parseDurationEnv("PAYMENT_ORDER_TTL", defaultPaymentOrderTTL); err != nil {
		return nil, err
	}
	if cfg.VerifyCacheTTL, err = parseDurationEnv("VERIFY_CACHE_TTL", defaultVerifyCacheTTL); err != nil {
		return nil, err
	}
	if cfg.AgreementDurationMonths, err = parseIntEnv("AGREEMENT_DURATION_MONTHS", defaultAgreementDuration); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return isProdLike(c.AppEnv) }

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.Cashfree.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be > 0")
	}
	if cfg.PaymentOrderTTL <= 0 {
		return fmt.Errorf("PAYMENT_ORDER_TTL must be > 0")
	}
	if cfg.AgreementDurationMonths <= 0 {
		return fmt.Errorf("AGREEMENT_DURATION_MONTHS must be > 0")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter code")
	}
	switch cfg.IdentityProvider {
	case "jwt":
	case "firebase":
		if cfg.FirebaseCredentialsFile == "" && cfg.FirebaseProjectID == "" {
			return fmt.Errorf("IDENTITY_PROVIDER=firebase needs FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("IDENTITY_PROVIDER must be one of: jwt, firebase")
	}
	switch cfg.DocumentStore {
	case "local":
		if cfg.DocumentDir == "" {
			return fmt.Errorf("DOCUMENT_DIR must not be empty")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("DOCUMENT_STORE=s3 needs S3_BUCKET")
		}
	default:
		return fmt.Errorf("DOCUMENT_STORE must be one of: local, s3")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) && cfg.IdentityProvider == "jwt" {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.Cashfree.WebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release CASHFREE_WEBHOOK_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.PayoutEncryptionKey, defaultPayoutKey) {
			return fmt.Errorf("in prod/release PAYOUT_ENCRYPTION_KEY must be set and not default")
		}
		if cfg.Cashfree.ClientID == "" || cfg.Cashfree.ClientSecret == "" {
			return fmt.Errorf("in prod/release CASHFREE_CLIENT_ID and CASHFREE_CLIENT_SECRET must be set")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
