package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Mail     MailConfig
	Redis    RedisConfig
	Sync     SyncConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectAttempts   int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	SessionSecret    string
	ProviderSecret   string // defaults to SessionSecret
	ProviderIssuer   string
	SessionExpiry    time.Duration
	RememberMeExpiry time.Duration
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   string
}

// OTPConfig controls one-time code issuance
type OTPConfig struct {
	Store           string // "postgres" or "redis"
	TTL             time.Duration
	MaxAttempts     int
	RequestsPerMin  int
	VerifiesPerMin  int
	CleanupInterval time.Duration
}

// MailConfig selects and configures the mail transport
type MailConfig struct {
	Transport   string // "ses", "http" or "template"
	FromAddress string
	Subject     string
	AWSRegion   string
	APIURL      string
	APIKey      string
	ServiceID   string
	TemplateID  string
	Timeout     time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SyncConfig controls the live directory subscription
type SyncConfig struct {
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	BulkConcurrency      int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "rolemaster"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			ConnectAttempts:   getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			SessionSecret:    sessionSecret,
			ProviderSecret:   getEnv("AUTH_PROVIDER_SECRET", sessionSecret),
			ProviderIssuer:   getEnv("AUTH_PROVIDER_ISSUER", ""),
			SessionExpiry:    getEnvAsDuration("SESSION_EXPIRY", 12*time.Hour),
			RememberMeExpiry: getEnvAsDuration("REMEMBER_ME_EXPIRY", 30*24*time.Hour),
			CookieDomain:     getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:     env == "production",
			CookieSameSite:   getEnv("COOKIE_SAMESITE", "lax"),
		},
		OTP: OTPConfig{
			Store:           strings.ToLower(getEnv("OTP_STORE", "postgres")),
			TTL:             getEnvAsDuration("OTP_TTL", 10*time.Minute),
			MaxAttempts:     getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
			RequestsPerMin:  getEnvAsInt("OTP_REQUESTS_PER_MINUTE", 5),
			VerifiesPerMin:  getEnvAsInt("OTP_VERIFY_PER_MINUTE", 10),
			CleanupInterval: getEnvAsDuration("OTP_CLEANUP_INTERVAL", 15*time.Minute),
		},
		Mail: MailConfig{
			Transport:   strings.ToLower(getEnv("MAIL_TRANSPORT", "ses")),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", ""),
			Subject:     getEnv("MAIL_SUBJECT", "Your OTP Code"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			APIURL:      getEnv("MAIL_API_URL", ""),
			APIKey:      getEnv("MAIL_API_KEY", ""),
			ServiceID:   getEnv("MAIL_SERVICE_ID", ""),
			TemplateID:  getEnv("MAIL_TEMPLATE_ID", ""),
			Timeout:     getEnvAsDuration("MAIL_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "otp"),
		},
		Sync: SyncConfig{
			Channel:              getEnv("SYNC_CHANNEL", "users_changed"),
			MinReconnectInterval: getEnvAsDuration("SYNC_MIN_RECONNECT", 10*time.Second),
			MaxReconnectInterval: getEnvAsDuration("SYNC_MAX_RECONNECT", time.Minute),
			BulkConcurrency:      getEnvAsInt("BULK_CONCURRENCY", 8),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.OTP.validate(); err != nil {
		return nil, err
	}

	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum security standards for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *OTPConfig) validate() error {
	switch c.Store {
	case "postgres", "redis":
	default:
		return fmt.Errorf("OTP_STORE must be postgres or redis (got %q)", c.Store)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	return nil
}

func (c *MailConfig) validate() error {
	switch c.Transport {
	case "ses":
		if c.FromAddress == "" {
			return fmt.Errorf("MAIL_FROM_ADDRESS is required for the ses transport")
		}
	case "http":
		if c.APIURL == "" || c.APIKey == "" || c.FromAddress == "" {
			return fmt.Errorf("MAIL_API_URL, MAIL_API_KEY and MAIL_FROM_ADDRESS are required for the http transport")
		}
	case "template":
		if c.APIURL == "" || c.ServiceID == "" || c.TemplateID == "" || c.APIKey == "" {
			return fmt.Errorf("MAIL_API_URL, MAIL_SERVICE_ID, MAIL_TEMPLATE_ID and MAIL_API_KEY are required for the template transport")
		}
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be ses, http or template (got %q)", c.Transport)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
