// Package config reads the server configuration from the environment and
// builds the storage backend it names.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverNeo4j    = "neo4j"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// devSecret signs sessions when JWT_SECRET is unset. Only accepted with the
// memory store.
const devSecret = "nestodo-dev-secret"

// Config holds the server settings.
type Config struct {
	Addr        string
	StoreDriver string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	SQLitePath    string
	DatabaseURL   string

	JWTSecret    string
	SessionTTL   time.Duration
	SecureCookie bool

	ResendAPIKey string
	MailFrom     string
	AppURL       string
}

// Load reads .env, if present, and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Addr:          get("ADDR", ":8080"),
		StoreDriver:   strings.ToLower(get("STORE_DRIVER", DriverMemory)),
		Neo4jURI:      get("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     get("NEO4J_USER", "neo4j"),
		Neo4jPassword: get("NEO4J_PASSWORD", "password"),
		SQLitePath:    get("SQLITE_PATH", "./nestodo.db"),
		DatabaseURL:   get("DATABASE_URL", ""),
		JWTSecret:     get("JWT_SECRET", ""),
		ResendAPIKey:  get("RESEND_API_KEY", ""),
		MailFrom:      get("MAIL_FROM", "Nestodo <onboarding@resend.dev>"),
		AppURL:        strings.TrimRight(get("APP_URL", "http://localhost:8080"), "/"),
	}
	cfg.SecureCookie = strings.HasPrefix(cfg.AppURL, "https://")

	ttl, err := time.ParseDuration(get("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %q", getenv("SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	switch cfg.StoreDriver {
	case DriverMemory, DriverNeo4j, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.StoreDriver != DriverMemory {
			return Config{}, errors.New("JWT_SECRET is required for persistent stores")
		}
		log.Println("JWT_SECRET not set, using the development secret")
		cfg.JWTSecret = devSecret
	}
	return cfg, nil
}
