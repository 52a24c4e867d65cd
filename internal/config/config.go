package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL        string
	RedisURL           string
	NatsURL            string
	KafkaBrokers       string
	GatewayBaseURL     string
	GatewayAccessToken string
	GatewayTimeout     time.Duration
	GatewayProvider    string
	FeeRateBps         int64
	CheckoutSuccessURL string
	CheckoutFailureURL string
	JWTSecret          string
	JaegerEndpoint     string
	Port               string
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	provider := os.Getenv("GATEWAY_PROVIDER")
	if provider == "" {
		provider = "mercadopago"
	}

	feeRateBps := int64(600)
	if v := os.Getenv("FEE_RATE_BPS"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			feeRateBps = parsed
		}
	}

	gatewayTimeout := 10 * time.Second
	if v := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			gatewayTimeout = time.Duration(parsed) * time.Second
		}
	}

	return &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		NatsURL:            os.Getenv("NATS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		GatewayBaseURL:     os.Getenv("GATEWAY_BASE_URL"),
		GatewayAccessToken: os.Getenv("GATEWAY_ACCESS_TOKEN"),
		GatewayTimeout:     gatewayTimeout,
		GatewayProvider:    provider,
		FeeRateBps:         feeRateBps,
		CheckoutSuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutFailureURL: os.Getenv("CHECKOUT_FAILURE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JaegerEndpoint:     os.Getenv("JAEGER_ENDPOINT"),
		Port:               port,
	}
}
