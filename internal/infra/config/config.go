package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	GatewaySandbox = "sandbox"
	GatewayHTTP    = "http"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	CORSOrigins        []string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	S3Endpoint         string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
	Currency           string
	PaymentWindow      time.Duration
	StayHold           time.Duration
	DepositHold        time.Duration
	RealtorShare       decimal.Decimal
	ServiceFeeRate     decimal.Decimal
	GatewayMode        string
	GatewayBaseURL     string
	GatewaySecretKey   string
	GatewayTimeout     time.Duration
	PaymentCallbackURL string
	SessionTTL         time.Duration
	AdminEmail         string
	AdminPassword      string
	JobsEnabled        bool
	JobBatchSize       int
}

// Load parses configuration from the current environment. A .env file in the
// working directory is read first; real environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "shortlet"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "shortlet-statements"),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "NGN")),
		GatewayMode:        strings.ToLower(getEnv("GATEWAY_MODE", GatewaySandbox)),
		GatewayBaseURL:     getEnv("GATEWAY_BASE_URL", "https://api.paystack.co"),
		GatewaySecretKey:   os.Getenv("GATEWAY_SECRET_KEY"),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/api/v1/payments/callback"),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"PAYMENT_WINDOW", 30 * time.Minute, &cfg.PaymentWindow},
		{"STAY_HOLD", 24 * time.Hour, &cfg.StayHold},
		{"DEPOSIT_HOLD", 48 * time.Hour, &cfg.DepositHold},
		{"GATEWAY_TIMEOUT", 15 * time.Second, &cfg.GatewayTimeout},
		{"SESSION_TTL", 24 * time.Hour, &cfg.SessionTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	for _, raw := range splitList(getEnv("RETRY_BACKOFF", "1s,5s,30s")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.JobsEnabled, err = parseBoolEnv("JOBS_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.JobBatchSize, err = parseIntEnv("JOB_BATCH_SIZE", 200); err != nil {
		return Config{}, err
	}
	if cfg.RealtorShare, err = parseDecimalEnv("REALTOR_SHARE", decimal.RequireFromString("0.90")); err != nil {
		return Config{}, err
	}
	if cfg.ServiceFeeRate, err = parseDecimalEnv("SERVICE_FEE_RATE", decimal.RequireFromString("0.05")); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Memory reports whether storage falls back to the in-process repositories.
func (c Config) Memory() bool {
	return c.MongoURI == ""
}

func (c Config) validate() error {
	if c.RealtorShare.IsNegative() || c.RealtorShare.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("REALTOR_SHARE must be between 0 and 1, got %s", c.RealtorShare)
	}
	if c.ServiceFeeRate.IsNegative() {
		return fmt.Errorf("SERVICE_FEE_RATE cannot be negative, got %s", c.ServiceFeeRate)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter code, got %q", c.Currency)
	}
	switch c.GatewayMode {
	case GatewaySandbox:
	case GatewayHTTP:
		if c.GatewaySecretKey == "" {
			return fmt.Errorf("GATEWAY_SECRET_KEY is required when GATEWAY_MODE=%s", GatewayHTTP)
		}
	default:
		return fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseDecimalEnv(key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s decimal: %w", key, err)
	}
	return d, nil
}
