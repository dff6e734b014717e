package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hearth/internal/config"
	"hearth/internal/database"
	"hearth/internal/handlers"
	"hearth/internal/logging"
	"hearth/internal/repository"
	"hearth/internal/service"
	"hearth/internal/sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env if present, real env vars take precedence
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Services
	familyService := service.NewFamilyService(familyRepo, membershipRepo, profileRepo)
	profileService := service.NewProfileService(profileRepo)
	membershipService := service.NewMembershipService(membershipRepo, familyRepo, profileRepo)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.InviteFromEmail, cfg.InviteFromName)
	if err != nil {
		slog.Error("failed to initialize email service", "error", err)
		os.Exit(1)
	}
	invitationService := service.NewInvitationService(invitationRepo, familyRepo, profileRepo, membershipService, emailService, cfg.InviteTTL)

	// Remote sync
	tokens := sync.NewDeviceTokenSource(cfg.DeviceID, cfg.DeviceSecret)
	client := sync.NewHTTPClient(cfg.RemoteBaseURL, tokens)
	engine := sync.NewEngine(familyRepo, profileRepo, membershipRepo, client, cfg.SyncRetries, time.Second)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.NewRouter(familyService, profileService, membershipService, invitationService, engine),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go runSyncLoop(ctx, engine, cfg.SyncInterval)
	go serveMetrics(cfg.MetricsPort)

	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

// runSyncLoop pushes dirty records on a fixed interval until the
// context is cancelled.
func runSyncLoop(ctx context.Context, engine *sync.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := engine.SyncPass(ctx); err != nil {
				slog.Error("sync pass failed", "error", err)
			}
		}
	}
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	slog.Info("metrics server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server failed", "error", err)
	}
}
