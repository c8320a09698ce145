package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	PostgresURL string

	JWTSecret string
	TokenTTL  time.Duration

	// Kafka is optional for the storefront: with no brokers, order events are
	// not published.
	KafkaBrokers      []string
	OrderCreatedTopic string
	ConsumerGroup     string

	MailerPort string
	MailerURL  string

	StaticDir        string
	CORSAllowOrigins []string

	TracingEnabled bool
	OTLPEndpoint   string
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getenv("PORT", "5000"),
		PostgresURL: getenv("POSTGRES_URL", ""),

		JWTSecret: getenv("JWT_SECRET", ""),
		TokenTTL:  parseDuration(getenv("TOKEN_TTL", "168h"), 7*24*time.Hour),

		KafkaBrokers:      splitCSV(getenv("KAFKA_BROKERS", "")),
		OrderCreatedTopic: getenv("ORDER_CREATED_TOPIC", "order.created"),
		ConsumerGroup:     getenv("KAFKA_CONSUMER_GROUP", "notifier"),

		MailerPort: getenv("MAILER_PORT", "8083"),
		MailerURL:  getenv("MAILER_URL", "http://localhost:8083"),

		StaticDir:        getenv("STATIC_DIR", ""),
		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),

		TracingEnabled: parseBool(getenv("TRACING_ENABLED", "false"), false),
		OTLPEndpoint:   getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// ValidateStorefront reports every setting the API server cannot start without.
func (c Config) ValidateStorefront() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) ValidateNotifier() error {
	var errs []error
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if c.MailerURL == "" {
		errs = append(errs, errors.New("MAILER_URL is required"))
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
