package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
)

type Config struct {
	ProviderURL  string // Required: base URL of the identity provider
	ClientID     string // Required: OAuth client id registered with the provider
	ClientSecret string // Required: OAuth client secret
	RedirectURL  string // Optional: redirect_uri sent with the code exchange

	RequireVerified  bool   // Reject profiles the provider has not validated (default: true)
	SyncDisplayName  bool   // Keep local display names in step with the provider (default: true)
	SuperadminSecret string // Optional: service-to-service bypass credential; empty disables it

	PublicKeyFile    string        // Path of the provider's PEM public key (default: ./keys/provider.pem)
	PublicKeyURL     string        // Where keyfetch downloads the key from (PEM or JWKS)
	KeyFetchAttempts int           // Attempts keyfetch makes before giving up (default: 5)
	TokenLeeway      time.Duration // Clock skew allowed on exp/nbf (default: 0)

	DatabaseFile    string        // Path to SQLite database file (default: ./bridge.db)
	RoutePrefix     string        // Where the bridge routes are mounted (default: /v1/auth)
	DatosRoles      string        // Comma separated role ids allowed on /datos; empty allows any
	UpstreamTimeout time.Duration // Bound on every provider round trip (default: 10s)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		ProviderURL:  os.Getenv("BRIDGE_PROVIDER_URL"),
		ClientID:     os.Getenv("BRIDGE_CLIENT_ID"),
		ClientSecret: os.Getenv("BRIDGE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("BRIDGE_REDIRECT_URL"),

		RequireVerified:  getEnvBoolOrDefault("BRIDGE_REQUIRE_VERIFIED", true),
		SyncDisplayName:  getEnvBoolOrDefault("BRIDGE_SYNC_DISPLAY_NAME", true),
		SuperadminSecret: os.Getenv("BRIDGE_SUPERADMIN_SECRET"),

		PublicKeyFile:    getEnvOrDefault("BRIDGE_PUBLIC_KEY_FILE", "keys/provider.pem"),
		PublicKeyURL:     os.Getenv("BRIDGE_PUBLIC_KEY_URL"),
		KeyFetchAttempts: getEnvIntOrDefault("BRIDGE_KEYFETCH_ATTEMPTS", 5),
		TokenLeeway:      getEnvDurationOrDefault("BRIDGE_TOKEN_LEEWAY", 0),

		DatabaseFile:    getEnvOrDefault("BRIDGE_DATABASE_FILE", "bridge.db"),
		RoutePrefix:     getEnvOrDefault("BRIDGE_ROUTE_PREFIX", "/v1/auth"),
		DatosRoles:      os.Getenv("BRIDGE_DATOS_ROLES"),
		UpstreamTimeout: getEnvDurationOrDefault("BRIDGE_UPSTREAM_TIMEOUT", 10*time.Second),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate reports every missing or malformed setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.ProviderURL == "" {
		errs = append(errs, errors.New("BRIDGE_PROVIDER_URL is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("BRIDGE_CLIENT_ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("BRIDGE_CLIENT_SECRET is required"))
	}
	if c.PublicKeyFile == "" {
		errs = append(errs, errors.New("BRIDGE_PUBLIC_KEY_FILE is required"))
	}
	if _, err := domain.ParseRoleSet(c.DatosRoles); err != nil {
		errs = append(errs, err)
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("BRIDGE_UPSTREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
