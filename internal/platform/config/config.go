// Package config reads all runtime configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Token lifetimes. Short access tokens limit the damage window of a leak;
// the refresh token covers a working week.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string
	DevMode       bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("VISITLOG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("VISITLOG_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Addr:          addr,
		DatabaseURL:   os.Getenv("VISITLOG_DATABASE_URL"),
		RedisURL:      os.Getenv("VISITLOG_REDIS_URL"),
		KafkaBrokers:  brokers,
		JWTSigningKey: jwtSigningKey,
		DevMode:       os.Getenv("VISITLOG_DEV_MODE") == "true",
	}
}
