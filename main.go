package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/quickreply-be/internal/api"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/config"
	"github.com/isdelr/quickreply-be/internal/database"
	"github.com/isdelr/quickreply-be/internal/logger"
	"github.com/isdelr/quickreply-be/internal/monitoring"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/isdelr/quickreply-be/internal/store"
	"github.com/isdelr/quickreply-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

const auditQueueSize = 1024

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(db)
	audit := services.NewAuditRecorder(st, auditQueueSize)
	defer audit.Close()

	userService := services.NewUserService(st, audit)
	if _, err := userService.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to create bootstrap admin")
	}

	// Sessions live in Redis when configured so they survive restarts.
	var sessions session.Store
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rs.Close()
		sessions = rs
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
		sessions = session.NewMemoryStore()
	}

	// Set up live state and the WebSocket hub
	live := services.NewLiveState()
	hub := websocket.NewHub(live.InitialMessage, cfg.HeartbeatInterval)
	go hub.Run(ctx)

	coordinator := services.NewCoordinator(st, audit, live, hub, sessions, cfg.SlowOperationThreshold)
	if err := coordinator.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load live state")
	}

	// Set up and run the log and message cleanup scheduler
	scheduler, err := monitoring.NewScheduler(audit, coordinator, cfg.LogCleanupSchedule, cfg.LogRetention, cfg.LogMaxEntries)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create cleanup scheduler")
	}
	go scheduler.Run(ctx)

	limiter := auth.NewKeyedLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst, 10*time.Minute)
	defer limiter.Stop()

	router := api.NewRouter(api.Dependencies{
		Hub:            hub,
		Coordinator:    coordinator,
		Users:          userService,
		Audit:          audit,
		Sessions:       sessions,
		Tokens:         auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL),
		Limiter:        limiter,
		CORSOrigins:    cfg.CORSOrigins,
		SecureCookies:  cfg.IsProduction(),
		DetailedErrors: cfg.IsDevelopment(),
		SlowThreshold:  cfg.SlowOperationThreshold,
		LogRetention:   cfg.LogRetention,
		LogMaxEntries:  cfg.LogMaxEntries,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()

	log.Info().Msg("Server exiting")
}
