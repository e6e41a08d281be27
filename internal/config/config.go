package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars and an optional
// YAML file. Environment values win over the file.
type Config struct {
	Port          string
	StorageDriver string
	DatabaseURL   string
	RedisURL      string

	JWTSecret     string
	JWTIssuer     string
	SessionTTL    time.Duration
	SessionSecret string
	AdminPassword string
	BcryptCost    int
	SecureCookies bool
	CSRFCacheSize int

	LoginRateLimit    int
	LoginRateWindow   time.Duration
	GeneralRateLimit  int
	GeneralRateWindow time.Duration

	// TrustedProxies lists peers whose X-Forwarded-For / X-Real-IP headers
	// are believed. Empty means the socket address is always the client.
	TrustedProxies []netip.Prefix

	UploadDir      string
	UploadMaxBytes int64

	CORSOrigins []string
	LogLevel    string
}

// Load reads configuration from the environment, overlaid on CONFIG_FILE when
// set, and fails on missing secrets.
func Load() (Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:          fallback(src.get("PORT"), "8080"),
		StorageDriver: strings.ToLower(fallback(src.get("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:   src.get("DATABASE_URL"),
		RedisURL:      src.get("REDIS_URL"),
		JWTSecret:     src.get("JWT_SECRET"),
		JWTIssuer:     fallback(src.get("JWT_ISSUER"), "portfolio-backend"),
		SessionSecret: src.get("SESSION_SECRET"),
		AdminPassword: src.get("ADMIN_PASSWORD"),
		CORSOrigins:   parseCSV(fallback(src.get("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:      fallback(src.get("LOG_LEVEL"), "info"),
		UploadDir:     fallback(src.get("UPLOAD_DIR"), "uploads"),
		SecureCookies: parseBool(src.get("COOKIE_SECURE"), false),

		SessionTTL:        minutes(src.get("SESSION_TTL_MINUTES"), 60),
		BcryptCost:        positive(src.get("BCRYPT_COST"), 10),
		CSRFCacheSize:     positive(src.get("CSRF_CACHE_SIZE"), 10000),
		LoginRateLimit:    positive(src.get("LOGIN_RATE_LIMIT"), 5),
		LoginRateWindow:   minutes(src.get("LOGIN_RATE_WINDOW_MINUTES"), 5),
		GeneralRateLimit:  positive(src.get("GENERAL_RATE_LIMIT"), 100),
		GeneralRateWindow: minutes(src.get("GENERAL_RATE_WINDOW_MINUTES"), 1),
		UploadMaxBytes:    int64(positive(src.get("UPLOAD_MAX_MB"), 10)) << 20,
	}

	if cfg.TrustedProxies, err = parsePrefixes(src.get("TRUSTED_PROXIES")); err != nil {
		return Config{}, err
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return Config{}, errors.New("ADMIN_PASSWORD is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// source resolves a key from the environment first, then from the file.
type source map[string]string

func newSource(path string) (source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return source{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	src := make(source, len(values))
	for k, v := range values {
		src[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return src, nil
}

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s[key])
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positive(value string, def int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return def
}

func minutes(value string, def int) time.Duration {
	return time.Duration(positive(value, def)) * time.Minute
}

func parseBool(value string, def bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// parsePrefixes reads a CSV of CIDRs or bare addresses. A bare address is
// treated as a single-host prefix.
func parsePrefixes(input string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			prefix, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
