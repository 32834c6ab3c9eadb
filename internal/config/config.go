package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AuthMode selects how the gateway attaches credentials to outbound calls.
// The two modes are mutually exclusive per deployment and fixed at startup.
type AuthMode string

const (
	// ModeBearer sends Authorization: Bearer <accessToken>.
	ModeBearer AuthMode = "bearer"
	// ModeInitData forwards the opaque identity proof on a single header.
	ModeInitData AuthMode = "initdata"
)

type Config struct {
	APIBaseURL     string
	AuthMode       AuthMode
	InitDataHeader string
	StatePath      string
	RequestTimeout time.Duration
	AppEnv         string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     os.Getenv("API_BASE_URL"),
		AuthMode:       AuthMode(os.Getenv("AUTH_MODE")),
		InitDataHeader: os.Getenv("INIT_DATA_HEADER"),
		StatePath:      os.Getenv("STATE_PATH"),
		RequestTimeout: 15 * time.Second,
		AppEnv:         os.Getenv("APP_ENV"),
	}

	if cfg.APIBaseURL == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AuthMode == "" {
		cfg.AuthMode = ModeBearer
	}
	if cfg.AuthMode != ModeBearer && cfg.AuthMode != ModeInitData {
		log.Fatalf("Unknown AUTH_MODE %q", cfg.AuthMode)
	}
	if cfg.InitDataHeader == "" {
		cfg.InitDataHeader = "X-Init-Data"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "pasarku.db"
	}
	if raw := os.Getenv("REQUEST_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			log.Fatalf("Invalid REQUEST_TIMEOUT_SECONDS %q", raw)
		}
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}

	return cfg
}
