package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one endpoint. Paths ending in "/" match by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int           // Requests per window; 0 means unlimited
	Window time.Duration
	Burst  int // Bucket capacity, defaults to Limit
}

// key identifies the bucket family a rule feeds.
func (r Rule) key() string {
	return r.Method + " " + r.Path
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // buckets unused this long are dropped
	Allowlist       map[string]bool
	Blocklist       map[string]bool
	Rules           []Rule
}

// LoadConfig reads RATE_LIMIT_* variables.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         envDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Allowlist:       parseIPList(os.Getenv("RATE_LIMIT_ALLOWLIST")),
		Blocklist:       parseIPList(os.Getenv("RATE_LIMIT_BLOCKLIST")),
		Rules:           DefaultRules(),
	}
}

// DefaultRules protects login from guessing and caps admin writes and test pushes.
func DefaultRules() []Rule {
	return []Rule{
		{Path: "/health", Method: "GET"},
		{Path: "/metrics", Method: "GET"},

		{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/admin/notifications/test", Method: "POST", Limit: 20, Window: time.Hour, Burst: 5},

		{Path: "/admin/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/admin/", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/admin/", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
