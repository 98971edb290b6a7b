package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "interviewhub/backend/internal/adapters/http"
	"interviewhub/backend/internal/adapters/ws"
	"interviewhub/backend/internal/collab"
	"interviewhub/backend/internal/config"
	sig "interviewhub/backend/internal/signal"
	"interviewhub/backend/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	attempts, rooms, cleanup := buildStores(ctx, cfg)
	defer cleanup()

	engine := collab.NewEngine(attempts, cfg.SaveQueue)
	engine.Start()
	defer engine.Stop()

	coord := sig.NewCoordinator()
	ctl := ws.NewController(coord, engine, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, ctl, rooms)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("interview server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// buildStores wires the attempt and room stores from config: Postgres when a
// URL is given, optionally fronted by a Redis snapshot cache, and an
// in-memory fallback for local runs without either.
func buildStores(ctx context.Context, cfg *config.Config) (store.AttemptStore, store.RoomStore, func()) {
	if cfg.PostgresURL == "" {
		log.Warn().Msg("no postgres_url configured, attempts held in memory only")
		mem := store.NewMemory()
		return mem, mem, func() {}
	}

	pg, err := store.NewPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error().Err(err).Msg("postgres unavailable, attempts held in memory only")
		mem := store.NewMemory()
		return mem, mem, func() {}
	}
	log.Info().Msg("connected to postgres")

	var attempts store.AttemptStore = pg
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, snapshot cache disabled")
		} else {
			attempts = store.NewCached(pg, rdb, cfg.SnapshotTTL)
			log.Info().Msg("redis snapshot cache enabled")
		}
	}
	return attempts, pg, pg.Close
}
