package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process configuration for care-portal.
type Config struct {
	Env       string `mapstructure:"ENVIRONMENT"`
	Port      string `mapstructure:"PORT"`
	PublicURL string `mapstructure:"PUBLIC_URL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	// RedisURL selects the Redis cache; empty falls back to the in-memory cache.
	RedisURL    string `mapstructure:"REDIS_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	AuthURL       string `mapstructure:"AUTH_URL"`
	AuthAPIKey    string `mapstructure:"AUTH_API_KEY"`
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWKSURL   string `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`

	PermissionsFile string   `mapstructure:"PERMISSIONS_FILE"`
	AllowedOrigins  []string `mapstructure:"ALLOWED_ORIGINS"`

	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SessionIdleTTL    time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	DraftTTL          time.Duration `mapstructure:"BOOKING_DRAFT_TTL"`
	DirectoryCacheTTL time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
	ClinicTimezone    string        `mapstructure:"CLINIC_TIMEZONE"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`

	MetricsEnabled  bool          `mapstructure:"METRICS_ENABLED"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"ENVIRONMENT", "PORT", "PUBLIC_URL", "LOG_LEVEL", "LOG_FORMAT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"REDIS_URL", "RABBITMQ_URL",
	"AUTH_URL", "AUTH_API_KEY", "AUTH_JWT_SECRET", "AUTH_JWKS_URL", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"PERMISSIONS_FILE", "ALLOWED_ORIGINS",
	"SESSION_TTL", "SESSION_IDLE_TTL", "BOOKING_DRAFT_TTL", "DIRECTORY_CACHE_TTL", "CLINIC_TIMEZONE", "COOKIE_SECURE",
	"METRICS_ENABLED", "SHUTDOWN_TIMEOUT",
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	// Exported into the process env so OTEL_* readers see .env values too.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("AUTH_AUDIENCE", "authenticated")
	v.SetDefault("PERMISSIONS_FILE", "permissions.yml")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("BOOKING_DRAFT_TTL", "2h")
	v.SetDefault("DIRECTORY_CACHE_TTL", "5m")
	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// env lists arrive comma separated and untrimmed
	cfg.AllowedOrigins = splitList(strings.Join(cfg.AllowedOrigins, ","))
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	}

	return cfg, nil
}

// Validate checks that the settings required to serve traffic are present.
func (c *Config) Validate() error {
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required")
	}
	if c.AuthURL == "" {
		return fmt.Errorf("AUTH_URL is required")
	}
	if c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	if c.SessionTTL <= 0 || c.DraftTTL <= 0 {
		return fmt.Errorf("SESSION_TTL and BOOKING_DRAFT_TTL must be positive")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location resolves the clinic time zone used for booking calendars.
func (c *Config) Location() (*time.Location, error) {
	if c.ClinicTimezone == "" || c.ClinicTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.ClinicTimezone)
}

// Issuer returns the expected token issuer, derived from AUTH_URL when unset.
func (c *Config) Issuer() string {
	if c.AuthIssuer != "" {
		return c.AuthIssuer
	}
	return strings.TrimSuffix(c.AuthURL, "/") + "/auth/v1"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
