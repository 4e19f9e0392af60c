// Package config loads process configuration from environment variables.
//
// LOAD ONCE, PASS EXPLICITLY:
// Load() runs exactly once, in main. The resulting Config value is handed to
// server.New, which hands the relevant pieces to each constructor (the JWT
// secret to auth.NewTokenService, the cost to auth.NewPasswordServiceWithCost,
// and so on). Nothing below main calls os.Getenv, so tests can build any
// configuration they like without touching the process environment.
//
// FAIL FAST:
// Every variable is checked before returning, and all problems are reported
// together. A deploy with two typos fails once with both named, not twice.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/notes-api/internal/auth"
)

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server needs.
type Config struct {
	Port int

	DBDriver    string // "sqlite" or "postgres"
	DBPath      string // sqlite file; ":memory:" for an in-process database
	DatabaseURL string // postgres DSN

	JWTSecret   string
	TokenTTL    time.Duration // 0 = tokens never expire
	TokenHeader string
	BcryptCost  int

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	MetricsEnabled  bool
	ShutdownTimeout time.Duration
}

// Default returns the configuration used when no variables are set.
// JWTSecret has no default.
func Default() Config {
	return Config{
		Port:            8080,
		DBDriver:        DriverSQLite,
		DBPath:          "data/notes.db",
		TokenHeader:     auth.DefaultHeader,
		BcryptCost:      auth.DefaultCost,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
		MetricsEnabled:  true,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any lookup function with the signature
// of os.LookupEnv. Tests pass a map-backed lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("PORT: %q is not a valid port", v))
		} else {
			cfg.Port = port
		}
	}

	if v, ok := get("DB_DRIVER"); ok {
		cfg.DBDriver = strings.ToLower(v)
	}
	if v, ok := get("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL: required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: %q is not one of sqlite, postgres", cfg.DBDriver))
	}

	// JWT_SECRET is not trimmed; whitespace may be part of a generated secret.
	secret, _ := lookup("JWT_SECRET")
	switch {
	case secret == "":
		errs = append(errs, errors.New("JWT_SECRET: required"))
	case len(secret) < auth.MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET: must be at least %d characters", auth.MinSecretLength))
	default:
		cfg.JWTSecret = secret
	}

	if v, ok := get("TOKEN_TTL"); ok {
		d, err := parseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("TOKEN_TTL: %q is not a non-negative duration", v))
		} else {
			cfg.TokenTTL = d
		}
	}

	if v, ok := get("TOKEN_HEADER"); ok {
		cfg.TokenHeader = v
	}

	if v, ok := get("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(v)
		if err != nil || cost < 4 || cost > 31 {
			errs = append(errs, fmt.Errorf("BCRYPT_COST: %q must be an integer between 4 and 31", v))
		} else {
			cfg.BcryptCost = cost
		}
	}

	if v, ok := get("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %q is not one of debug, info, warn, error", v))
		}
	}

	if v, ok := get("LOG_FORMAT"); ok {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			errs = append(errs, fmt.Errorf("LOG_FORMAT: %q is not one of text, json", v))
		} else {
			cfg.LogFormat = v
		}
	}

	if v, ok := get("METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("METRICS_ENABLED: %q is not a boolean", v))
		} else {
			cfg.MetricsEnabled = b
		}
	}

	if v, ok := get("SHUTDOWN_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %q is not a positive duration", v))
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// parseDuration accepts Go duration syntax ("15m", "24h") or a bare number
// of seconds ("900").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
