// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Luka-CB/card-game-server/internal/auth"
	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/database"
	"github.com/Luka-CB/card-game-server/internal/flow"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/historian"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Port     string
	LogLevel logrus.Level

	// AllowedOrigins feeds the CORS handler of the HTTP routes.
	AllowedOrigins []string

	StoreBackend string
	RedisAddr    string
	RedisDB      int

	// Postgres is optional: without PG_HOST results are not persisted.
	Postgres database.Config

	Flow flow.Config

	CleanupInterval     time.Duration
	InactivityThreshold time.Duration
	DisconnectGrace     time.Duration

	HistorianQueue string
	Historian      historian.Config
	TokenTTL       time.Duration
}

// PostgresEnabled reports whether a database host was configured.
func (c Config) PostgresEnabled() bool {
	return c.Postgres.Host != ""
}

// Load reads every setting, falling back to defaults for unset variables.
// Malformed values are errors rather than silently defaulted.
func Load() (Config, error) {
	l := loader{}
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "https://*,http://*")),
		StoreBackend:   getEnv("STORE_BACKEND", BackendRedis),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        l.int("REDIS_DB", 0),
		Postgres: database.Config{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Host:     os.Getenv("PG_HOST"),
			Port:     getEnv("PG_PORT", "5432"),
			Database: os.Getenv("PG_DATABASE"),
		},
		CleanupInterval:     l.duration("CLEANUP_INTERVAL", room.DefaultCleanupInterval),
		InactivityThreshold: l.duration("INACTIVITY_THRESHOLD", room.DefaultInactivityThreshold),
		DisconnectGrace:     l.duration("DISCONNECT_GRACE", room.DefaultDisconnectGrace),
		HistorianQueue:      getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		l.fail("LOG_LEVEL", err)
	}
	cfg.LogLevel = level

	switch cfg.StoreBackend {
	case BackendRedis, BackendMemory:
	default:
		l.fail("STORE_BACKEND", fmt.Errorf("unknown backend %q", cfg.StoreBackend))
	}

	ttl, err := auth.ParseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		l.fail("TOKEN_EXPIRE_TIME", err)
	}
	cfg.TokenTTL = ttl

	h := historian.DefaultConfig()
	h.BatchSize = l.int("HISTORIAN_BATCH_SIZE", h.BatchSize)
	h.FlushDelay = l.duration("HISTORIAN_FLUSH_INTERVAL", h.FlushDelay)
	h.Inactivity = l.duration("MATCH_INACTIVITY_TIMEOUT", h.Inactivity)
	cfg.Historian = h

	f := flow.DefaultConfig()
	f.TurnDuration = l.duration("TURN_DURATION", f.TurnDuration)
	f.AwayTurnDuration = l.duration("AWAY_TURN_DURATION", f.AwayTurnDuration)
	f.DealAnimation = l.duration("DEAL_ANIMATION", f.DealAnimation)
	f.NextHandDelay = l.duration("NEXT_HAND_DELAY", f.NextHandDelay)
	f.FinishedGrace = l.duration("FINISHED_GRACE", f.FinishedGrace)
	f.DefaultHisht = l.int("DEFAULT_HISHT", f.DefaultHisht)
	policy, err := game.ParseMissPolicy(os.Getenv("SCORING_MISS_POLICY"))
	if err != nil {
		l.fail("SCORING_MISS_POLICY", err)
	}
	f.MissPolicy = policy
	cfg.Flow = f

	return cfg, l.err
}

// loader keeps the first parse error so Load can report it once.
type loader struct {
	err error
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("config %s: %w", key, err)
	}
}

func (l *loader) int(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, err)
		return defVal
	}
	return i
}

func (l *loader) duration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, err)
		return defVal
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}
