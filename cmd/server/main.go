// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Luka-CB/card-game-server/internal/auth"
	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/config"
	"github.com/Luka-CB/card-game-server/internal/database"
	"github.com/Luka-CB/card-game-server/internal/flow"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/handlers"
	"github.com/Luka-CB/card-game-server/internal/middleware"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := flow.Deps{Logger: logger}

	var hashes cache.HashStore
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using the in-memory store; state is lost on restart and action history is not recorded")
		hashes = cache.NewMemoryHashStore()
	default:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer rdb.Close()
		hashes = cache.NewRedisHashStore(rdb)
		deps.Actions = cache.NewRedisActionLog(rdb, cfg.HistorianQueue)
		logger.Infof("connected to Redis at %s", cfg.RedisAddr)
	}

	var stats handlers.StatsReader
	if cfg.PostgresEnabled() {
		pool, err := database.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("%v", err)
		}
		recorder := database.NewRecorder(pool, logger)
		deps.Results = recorder
		stats = recorder
	} else {
		logger.Warn("PG_HOST not set; match results and player stats are not persisted")
	}

	signer, err := auth.NewSigner(cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	rooms := room.NewDirectory(hashes)
	hub := handlers.NewHub(logger)
	deps.Games = game.NewGameStore(hashes)
	deps.Rooms = rooms
	deps.Emitter = hub
	orch := flow.New(cfg.Flow, deps)
	resumeGames(ctx, rooms, orch, logger)

	srv := handlers.NewServer(handlers.Options{
		Flow:            orch,
		Rooms:           rooms,
		Signer:          signer,
		Hub:             hub,
		Stats:           stats,
		DisconnectGrace: cfg.DisconnectGrace,
		Logger:          logger,
	})

	cleanup := room.NewCleanupService(rooms, orch, cfg.CleanupInterval, cfg.InactivityThreshold, logger)
	cleanup.Start(ctx)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.LogMiddleware(logger))
	r.Mount("/", srv.Routes())

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

// resumeGames restarts the clocks of games that were running before a restart.
func resumeGames(ctx context.Context, rooms *room.Directory, orch *flow.Orchestrator, logger *logrus.Logger) {
	stored, err := rooms.ListRooms(ctx)
	if err != nil {
		logger.WithError(err).Error("failed to list rooms for resume")
		return
	}
	ids := make([]uuid.UUID, 0, len(stored))
	for _, r := range stored {
		ids = append(ids, r.ID)
	}
	if n := orch.Resume(ctx, ids); n > 0 {
		logger.Infof("resumed %d running games", n)
	}
}
