package config

import (
	"os"
	"strconv"
	"time"
)

// OTPConfig holds the tunables of the verification code lifecycle.
type OTPConfig struct {
	TTL            time.Duration // how long a code stays verifiable
	MaxAttempts    int           // verify attempts before the code locks
	ResendInterval time.Duration // cool-down between requests per phone
	LoginWindow    time.Duration // grace window between verify and login
	Pepper         string        // secret mixed into every code hash
	DevCode        string        // fixed code for non-production environments
}

// JWTConfig holds token issuance settings.
type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TwilioConfig holds SMS gateway credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Config is the immutable application configuration, read from the
// environment exactly once at startup and injected into services.
type Config struct {
	Env    string
	Port   string
	OTP    OTPConfig
	JWT    JWTConfig
	Twilio TwilioConfig
}

// Load reads all configuration from environment variables, applying defaults
func Load() *Config {
	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTP: OTPConfig{
			TTL:            time.Duration(getEnvInt("OTP_TTL_SECONDS", 300)) * time.Second,
			MaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 5),
			ResendInterval: time.Duration(getEnvInt("OTP_INTERVAL_SECONDS", 60)) * time.Second,
			LoginWindow:    time.Duration(getEnvInt("OTP_LOGIN_WINDOW_SECONDS", 300)) * time.Second,
			Pepper:         getEnv("OTP_PEPPER", "dev-pepper-do-not-use-in-prod"),
			DevCode:        os.Getenv("OTP_DEV_CODE"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "dev-secret-do-not-use-in-prod"),
			AccessTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
			RefreshTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 168)) * time.Hour,
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
	}
}

// IsProduction reports whether the production environment flag is set.
// The fixed dev code must never be usable when this returns true.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
