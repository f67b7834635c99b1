package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string

	// Background workers draining the match_jobs queue. 0 disables them;
	// imports then sit queued until a rescan or a worker appears.
	MatchWorkers int

	// Matcher tuning knobs. Empirical, not derived.
	NameThreshold    float64
	AddressThreshold float64
	CandidateLimit   int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(v); err == nil {
			return out
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseFloat(v, 64); err == nil {
			return out
		}
	}
	return def
}

func Load() (Config, error) {
	// Optional .env for local runs; ignored when absent.
	_ = godotenv.Load()

	cfg := Config{
		Env:              getenv("APP_ENV", "development"),
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MatchWorkers:     getenvInt("MATCH_WORKERS", 2),
		NameThreshold:    getenvFloat("MATCH_NAME_THRESHOLD", 0.3),
		AddressThreshold: getenvFloat("MATCH_ADDRESS_THRESHOLD", 0.6),
		CandidateLimit:   getenvInt("MATCH_CANDIDATE_LIMIT", 5),
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
