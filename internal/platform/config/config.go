package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StorageBackend string

	DefaultCurrency string
	Location        *time.Location

	// Change bus. An empty AMQPURL keeps change events inside this instance.
	AMQPURL      string
	AMQPExchange string

	RatesAPIURL          string
	RatesAPIKey          string
	RatesBaseCurrency    string
	RatesRefreshInterval time.Duration
	RatesCacheTTL        time.Duration

	RateLimit          string
	CORSAllowedOrigins []string

	// Product analytics. An empty PostHogAPIKey disables it.
	PostHogAPIKey   string
	PostHogEndpoint string

	MutationMaxAttempts    int
	SubscriptionMaxBackoff time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORAGE_BACKEND", StoragePostgres)
	viper.SetDefault("DEFAULT_CURRENCY", "INR")
	viper.SetDefault("LEDGER_TIMEZONE", "Local")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "ledger.changes")
	viper.SetDefault("RATES_API_URL", "")
	viper.SetDefault("RATES_API_KEY", "")
	viper.SetDefault("RATES_BASE_CURRENCY", "INR")
	viper.SetDefault("RATES_REFRESH_INTERVAL", "1h")
	viper.SetDefault("RATES_CACHE_TTL", "6h")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "")
	viper.SetDefault("MUTATION_MAX_ATTEMPTS", 5)
	viper.SetDefault("SUBSCRIPTION_MAX_BACKOFF", "30s")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:       viper.GetString("PGSQL_URL"),
		Port:              viper.GetString("PORT"),
		IsProduction:      viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:     viper.GetBool("ENABLE_DB_CHECK"),
		StorageBackend:    strings.ToLower(viper.GetString("STORAGE_BACKEND")),
		DefaultCurrency:   strings.ToUpper(viper.GetString("DEFAULT_CURRENCY")),
		AMQPURL:           viper.GetString("AMQP_URL"),
		AMQPExchange:      viper.GetString("AMQP_EXCHANGE"),
		RatesAPIURL:       viper.GetString("RATES_API_URL"),
		RatesAPIKey:       viper.GetString("RATES_API_KEY"),
		RatesBaseCurrency: strings.ToUpper(viper.GetString("RATES_BASE_CURRENCY")),
		RateLimit:         viper.GetString("RATE_LIMIT"),
		PostHogAPIKey:     viper.GetString("POSTHOG_API_KEY"),
		PostHogEndpoint:   viper.GetString("POSTHOG_ENDPOINT"),
	}

	if cfg.StorageBackend != StoragePostgres && cfg.StorageBackend != StorageMemory {
		log.Printf("Warning: unknown STORAGE_BACKEND ('%s'). Defaulting to %s.\n", cfg.StorageBackend, StoragePostgres)
		cfg.StorageBackend = StoragePostgres
	}
	if cfg.StorageBackend == StoragePostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	tz := viper.GetString("LEDGER_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Warning: Invalid value for LEDGER_TIMEZONE ('%s'). Defaulting to Local.\n", tz)
		loc = time.Local
	}
	cfg.Location = loc

	cfg.RatesRefreshInterval = durationOrDefault("RATES_REFRESH_INTERVAL", time.Hour)
	cfg.RatesCacheTTL = durationOrDefault("RATES_CACHE_TTL", 6*time.Hour)
	cfg.SubscriptionMaxBackoff = durationOrDefault("SUBSCRIPTION_MAX_BACKOFF", 30*time.Second)

	cfg.MutationMaxAttempts = viper.GetInt("MUTATION_MAX_ATTEMPTS")
	if cfg.MutationMaxAttempts < 1 {
		log.Printf("Warning: Invalid value for MUTATION_MAX_ATTEMPTS (%d). Defaulting to 5.\n", cfg.MutationMaxAttempts)
		cfg.MutationMaxAttempts = 5
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.RatesAPIURL == "" {
		log.Println("Warning: RATES_API_URL not set. Built-in exchange rates will be used.")
	}

	return cfg, nil
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}
