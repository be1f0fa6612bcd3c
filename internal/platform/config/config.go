package config

import (
	"os"
	"strconv"
)

// Server captures process level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis RedisConfig

	// RevealTZ is the IANA zone the daily reveal window is anchored to.
	// Every day-boundary comparison in the reveal module uses this single
	// zone; see internal/reveal/models.DayOf.
	RevealTZ string

	// DailyRevealLimit overrides the default ceiling of 50. Kept
	// configurable for load tests; production runs the default.
	DailyRevealLimit int
}

// RedisConfig configures the optional reveal-ledger cache.
type RedisConfig struct {
	URL string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("AGENCYDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tz := os.Getenv("REVEAL_TZ")
	if tz == "" {
		tz = "UTC"
	}

	limit := 0
	if raw := os.Getenv("DAILY_REVEAL_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	return Server{
		Addr:             addr,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSigningKey:    jwtSigningKey,
		Redis:            RedisConfig{URL: os.Getenv("REDIS_URL")},
		RevealTZ:         tz,
		DailyRevealLimit: limit,
	}
}
