package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr            string `validate:"required"`
		CORSOrigins     []string
		RateLimit       time.Duration
		ShutdownTimeout time.Duration `validate:"required"`
	}
	Auth struct {
		// Mode selects session verification: "local" checks signed tokens
		// in-process, "remote" asks the auth provider per request.
		Mode        string `validate:"required,oneof=local remote"`
		JWTSecret   string
		CookieName  string `validate:"required"`
		ProviderURL string
		APIKey      string
	}
	Store struct {
		Driver      string `validate:"required,oneof=memory sqlite postgres"`
		SQLitePath  string
		PostgresDSN string
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

// Production reports whether the service runs in the prod environment.
// It drives error-context redaction at the HTTP boundary.
func (c Config) Production() bool { return c.Env == "prod" }

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.HTTP.CORSOrigins = splitCSV(os.Getenv("HTTP_CORS_ORIGINS"))
	c.HTTP.RateLimit = getduration("HTTP_RATE_LIMIT", 0)
	c.HTTP.ShutdownTimeout = getduration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	c.Auth.Mode = getenv("AUTH_MODE", "local")
	c.Auth.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	c.Auth.CookieName = getenv("AUTH_COOKIE_NAME", "app_session")
	c.Auth.ProviderURL = os.Getenv("AUTH_PROVIDER_URL")
	c.Auth.APIKey = os.Getenv("AUTH_API_KEY")
	c.Store.Driver = getenv("STORE_DRIVER", "sqlite")
	c.Store.SQLitePath = getenv("STORE_SQLITE_PATH", "data/app.db")
	c.Store.PostgresDSN = os.Getenv("STORE_POSTGRES_DSN")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/server.log")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Auth.Mode == "local" && c.Auth.JWTSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET required when AUTH_MODE=local")
	}
	if c.Auth.Mode == "remote" && c.Auth.ProviderURL == "" {
		return Config{}, errors.New("AUTH_PROVIDER_URL required when AUTH_MODE=remote")
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		return Config{}, errors.New("STORE_POSTGRES_DSN required when STORE_DRIVER=postgres")
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
