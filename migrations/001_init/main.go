// Migration 001: create the scan cache and feedback tables.
//
// Usage:
//
//	POSTGRES_HOST=... POSTGRES_DATABASE=... POSTGRES_USER=... \
//	POSTGRES_PASSWORD=... go run ./migrations/001_init
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres"
)

func main() {
	port := 5432
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}

	cfg := postgres.Config{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     port,
		Database: os.Getenv("POSTGRES_DATABASE"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	}
	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" || cfg.Password == "" {
		log.Fatal("POSTGRES_HOST, POSTGRES_DATABASE, POSTGRES_USER and POSTGRES_PASSWORD are required")
	}

	// postgres.New runs AutoMigrate for url_scan_cache and url_scan_feedback,
	// including the expires_at and url indexes.
	db, err := postgres.New(cfg)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	defer db.Close()

	log.Println("migration 001_init applied: url_scan_cache, url_scan_feedback")
}
