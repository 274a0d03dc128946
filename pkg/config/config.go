// Package config loads environment-driven application configuration. A local
// .env file is honored in development; real environments set variables
// directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all application settings.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Generation    GenerationConfig
	Currency      CurrencyConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port               string
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type GenerationConfig struct {
	GeminiAPIKey string
	Model        string
	Timeout      time.Duration
}

type CurrencyConfig struct {
	// DisplayMarginPercent is added on top of converted (non-AED) display
	// prices to absorb FX movement between quote and booking.
	DisplayMarginPercent float64
	// Rates are units of target currency per 1 AED, comma separated
	// "USD=0.2723,EUR=0.2510".
	Rates map[string]float64
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Best-effort: absence of .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "8080"),
			RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
			AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "trip_planner"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Generation: GenerationConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:      getEnvDuration("GENERATION_TIMEOUT", 90*time.Second),
		},
		Currency: CurrencyConfig{
			DisplayMarginPercent: getEnvFloat("CURRENCY_MARGIN_PERCENT", 2.5),
			Rates:                parseRates(getEnv("CURRENCY_RATES", "USD=0.2723,EUR=0.2510,GBP=0.2150")),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Generation.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return cfg, nil
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseRates(v string) map[string]float64 {
	rates := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		if rate, err := strconv.ParseFloat(kv[1], 64); err == nil && rate > 0 {
			rates[strings.ToUpper(kv[0])] = rate
		}
	}
	return rates
}
