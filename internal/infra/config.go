package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv                string
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	AllowedOrigins        []string
	DefaultLocale         string
	GeoIPDBPath           string
	ResetTimeZone         string
	TourCatalogBaseURL    string
	DiningCatalogBaseURL  string
	CatalogAPIKey         string
	CatalogTimeout        time.Duration
	StripeWebhookSecret   string
	StripePricePro        string
	StripePriceProPlus    string
	StripePriceEnterprise string
	TrendingWindowDays    int
	HTTPReadTimeout       time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
	RateLimitPerMin       int
	SweepInterval         time.Duration
	RollupInterval        time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AllowedOrigins:        splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		DefaultLocale:         getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:           os.Getenv("GEOIP_DB_PATH"),
		ResetTimeZone:         getEnv("PROMO_RESET_TZ", "UTC"),
		TourCatalogBaseURL:    getEnv("TOUR_CATALOG_BASE_URL", "https://api.viator.com/partner"),
		DiningCatalogBaseURL:  getEnv("DINING_CATALOG_BASE_URL", "https://toptours.ai/api/catalog"),
		CatalogAPIKey:         os.Getenv("CATALOG_API_KEY"),
		CatalogTimeout:        time.Second * time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 30)),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePricePro:        os.Getenv("STRIPE_PRICE_PRO"),
		StripePriceProPlus:    os.Getenv("STRIPE_PRICE_PRO_PLUS"),
		StripePriceEnterprise: os.Getenv("STRIPE_PRICE_ENTERPRISE"),
		TrendingWindowDays:    getEnvInt("TRENDING_WINDOW_DAYS", 7),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SweepInterval:         time.Minute * time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 60)),
		RollupInterval:        time.Minute * time.Duration(getEnvInt("ROLLUP_INTERVAL_MINUTES", 15)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if _, err := time.LoadLocation(cfg.ResetTimeZone); err != nil {
		return nil, fmt.Errorf("PROMO_RESET_TZ invalid: %w", err)
	}

	if cfg.TrendingWindowDays < 1 {
		cfg.TrendingWindowDays = 7
	}

	return cfg, nil
}

// ResetLocation resolves the configured reset time zone.
func (c *Config) ResetLocation() *time.Location {
	loc, err := time.LoadLocation(c.ResetTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
