package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig holds the API server settings read from the environment.
type ServerConfig struct {
	Port            int
	DatabaseURL     string
	RedisURL        string // empty disables the public catalog cache
	NATSURL         string // empty disables job-created events
	FCMProjectID    string // empty disables test notifications
	CredentialsFile string
	CatalogCacheTTL time.Duration
	LogLevel        string
	Development     bool
}

// LoadServer reads the server settings. DATABASE_URL is required.
func LoadServer() (*ServerConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", port)
	}

	ttl, err := durationEnv("CATALOG_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}

	return &ServerConfig{
		Port:            port,
		DatabaseURL:     dbURL,
		RedisURL:        os.Getenv("REDIS_URL"),
		NATSURL:         os.Getenv("NATS_URL"),
		FCMProjectID:    os.Getenv("FCM_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		CatalogCacheTTL: ttl,
		LogLevel:        stringEnv("LOG_LEVEL", DefaultLogLevel),
		Development:     os.Getenv("ENV") == "development",
	}, nil
}

// FanoutConfig holds the push fan-out worker settings.
type FanoutConfig struct {
	NATSURL         string
	QueueGroup      string
	FCMProjectID    string
	CredentialsFile string // empty uses application default credentials
	MetricsAddr     string
	LogLevel        string
	Development     bool
}

// LoadFanout reads the worker settings. NATS_URL and FCM_PROJECT_ID are required.
func LoadFanout() (*FanoutConfig, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	project := os.Getenv("FCM_PROJECT_ID")
	if project == "" {
		return nil, fmt.Errorf("FCM_PROJECT_ID is required")
	}

	return &FanoutConfig{
		NATSURL:         natsURL,
		QueueGroup:      stringEnv("FANOUT_QUEUE_GROUP", "fanout"),
		FCMProjectID:    project,
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		MetricsAddr:     stringEnv("METRICS_ADDR", ":9091"),
		LogLevel:        stringEnv("LOG_LEVEL", DefaultLogLevel),
		Development:     os.Getenv("ENV") == "development",
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}
