package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/zhao0294/cst8919-assignment1/internal/utils"
)

const EnvDevelopment = "development"

type Config struct {
	AppPort string `env:"PORT" envDefault:"8000"`
	AppEnv  string `env:"APP_ENV"`
	// FlaskEnv is accepted as a fallback for AppEnv so existing deployments
	// keep their dev/prod switch.
	FlaskEnv string `env:"FLASK_ENV"`
	BaseURL  string `env:"APP_BASE_URL"`

	SecretKey string `env:"APP_SECRET_KEY"`

	Auth0Domain       string `env:"AUTH0_DOMAIN"`
	Auth0ClientID     string `env:"AUTH0_CLIENT_ID"`
	Auth0ClientSecret string `env:"AUTH0_CLIENT_SECRET"`
	Auth0IssuerURL    string `env:"AUTH0_ISSUER_URL"`

	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	LoginAttemptTTL   time.Duration `env:"LOGIN_ATTEMPT_TTL" envDefault:"5m"`
	CookieSecure      *bool         `env:"SESSION_COOKIE_SECURE"`

	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	ActivityStream       string `env:"ACTIVITY_STREAM" envDefault:"user_activity"`
	ActivityStreamMaxLen int64  `env:"ACTIVITY_STREAM_MAXLEN" envDefault:"10000"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// GeneratedSecret is set when no APP_SECRET_KEY was given in development
	// and a per-process key was generated instead.
	GeneratedSecret bool
}

// Load reads an optional .env file, then the process environment, and
// validates the result. Any error here is fatal for the process.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses and validates configuration from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = cfg.FlaskEnv
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "production"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required provider credentials and fills the development
// secret key when one was not configured.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth0Domain == "" && c.Auth0IssuerURL == "" {
		missing = append(missing, "AUTH0_DOMAIN")
	}
	if c.Auth0ClientID == "" {
		missing = append(missing, "AUTH0_CLIENT_ID")
	}
	if c.Auth0ClientSecret == "" {
		missing = append(missing, "AUTH0_CLIENT_SECRET")
	}
	if c.SecretKey == "" && !c.IsDevelopment() {
		missing = append(missing, "APP_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.LoginAttemptTTL <= 0 {
		return fmt.Errorf("config: LOGIN_ATTEMPT_TTL must be positive, got %s", c.LoginAttemptTTL)
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("config: APP_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}

	if c.SecretKey == "" {
		key, err := utils.RandomString(32)
		if err != nil {
			return fmt.Errorf("config: generate development secret: %w", err)
		}
		c.SecretKey = key
		c.GeneratedSecret = true
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, EnvDevelopment)
}

// SecureCookies reports whether session cookies carry the Secure flag.
// Unless set explicitly it is off only in development.
func (c Config) SecureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return !c.IsDevelopment()
}

// Issuer returns the provider issuer URL. Auth0 issuers carry a trailing slash.
func (c Config) Issuer() string {
	if c.Auth0IssuerURL != "" {
		return c.Auth0IssuerURL
	}
	domain := strings.TrimSuffix(c.Auth0Domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + "/"
	}
	return "https://" + domain + "/"
}

func (c Config) Addr() string {
	return ":" + c.AppPort
}
