package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort       = "8080"
	defaultDBPath     = "welfare.db"
	defaultEnv        = "development"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
	defaultSessionTTL = 7 * 24 * time.Hour
	devSessionSecret  = "welfare-development-secret"
)

// Config captures console runtime configuration loaded from environment variables.
type Config struct {
	Env           string
	Port          string
	DBPath        string
	BackendURL    string
	RegisterURL   string
	LogLevel      string
	LogFormat     string
	SessionSecret string
	SessionTTL    time.Duration
	CSRFKey       []byte
	// TrustProxy takes client addresses from CF-Connecting-IP and
	// X-Forwarded-For. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// Load reads WELFARE_* variables. Missing optional values fall back to defaults;
// production refuses to start without a session secret and CSRF key.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Env:           get("WELFARE_ENV", defaultEnv),
		Port:          get("WELFARE_PORT", defaultPort),
		DBPath:        get("WELFARE_DB_PATH", defaultDBPath),
		BackendURL:    strings.TrimRight(getenv("WELFARE_BACKEND_URL"), "/"),
		RegisterURL:   getenv("WELFARE_REGISTER_URL"),
		LogLevel:      strings.ToLower(get("WELFARE_LOG_LEVEL", defaultLogLevel)),
		LogFormat:     strings.ToLower(get("WELFARE_LOG_FORMAT", defaultLogFormat)),
		SessionSecret: getenv("WELFARE_SESSION_SECRET"),
		SessionTTL:    defaultSessionTTL,
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("WELFARE_BACKEND_URL must be set")
	}
	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid WELFARE_BACKEND_URL %q", cfg.BackendURL)
	}

	if v := getenv("WELFARE_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WELFARE_SESSION_TTL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("WELFARE_SESSION_TTL must be positive")
		}
		cfg.SessionTTL = d
	}

	if v := strings.TrimSpace(getenv("WELFARE_TRUST_PROXY")); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WELFARE_TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = trust
	}

	if keyHex := getenv("WELFARE_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return Config{}, fmt.Errorf("WELFARE_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.CSRFKey = key
	}

	if cfg.IsProduction() {
		if cfg.SessionSecret == "" {
			return Config{}, fmt.Errorf("WELFARE_SESSION_SECRET is required in production")
		}
		if cfg.CSRFKey == nil {
			return Config{}, fmt.Errorf("WELFARE_CSRF_KEY is required in production")
		}
	} else if cfg.SessionSecret == "" {
		cfg.SessionSecret = devSessionSecret
	}

	return cfg, nil
}

// IsProduction reports whether the console runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Address returns the listen address for http.Server.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
