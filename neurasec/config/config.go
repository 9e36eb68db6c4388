// Package config loads process configuration from the environment. A .env
// file in the working directory is honoured when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the scan server needs at startup. The vendor API
// key and the full Postgres connection parameters are mandatory; the server
// must not start without them. Valkey and AMQP are optional integrations.
type Config struct {
	Env        string
	ListenAddr string

	VirusTotalAPIKey string

	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	ValkeyAddr string
	AMQPURL    string

	CacheWindow time.Duration
	VendorWait  time.Duration
	HTTPTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads configuration from the environment. It returns an error when a
// required value is missing; callers treat that as fatal at startup.
func Load() (Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Env:              getenv("APP_ENV", "development"),
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		VirusTotalAPIKey: os.Getenv("VIRUSTOTAL_API_KEY"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getenvInt("POSTGRES_PORT", 5432),
		PostgresDatabase: os.Getenv("POSTGRES_DATABASE"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		ValkeyAddr:       os.Getenv("VALKEY_ADDR"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		CacheWindow:      time.Duration(getenvInt("SCAN_CACHE_HOURS", 6)) * time.Hour,
		VendorWait:       time.Duration(getenvInt("VT_WAIT_SECONDS", 3)) * time.Second,
		HTTPTimeout:      time.Duration(getenvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	if cfg.VirusTotalAPIKey == "" {
		return cfg, fmt.Errorf("VIRUSTOTAL_API_KEY is not set")
	}
	for _, kv := range []struct{ name, value string }{
		{"POSTGRES_HOST", cfg.PostgresHost},
		{"POSTGRES_DATABASE", cfg.PostgresDatabase},
		{"POSTGRES_USER", cfg.PostgresUser},
		{"POSTGRES_PASSWORD", cfg.PostgresPassword},
	} {
		if kv.value == "" {
			return cfg, fmt.Errorf("%s is not set", kv.name)
		}
	}

	return cfg, nil
}
