package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/jacoblam121/tournament-arc/config"
	"github.com/jacoblam121/tournament-arc/db"
	"github.com/jacoblam121/tournament-arc/handlers"
	"github.com/jacoblam121/tournament-arc/live"
	"github.com/jacoblam121/tournament-arc/rankings"
	"github.com/jacoblam121/tournament-arc/repositories"
	api "github.com/jacoblam121/tournament-arc/routes"
	"github.com/jacoblam121/tournament-arc/scoring"
	"github.com/jacoblam121/tournament-arc/services"
	"github.com/jacoblam121/tournament-arc/storage"
)

const cacheMaxEntries = 10_000

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// The archive uploader is optional: without R2 credentials resets
	// proceed unarchived only for empty leaderboards, so most deploys
	// want this configured.
	var archiver services.StandingsArchiver
	if cfg.R2AccountID != "" {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewCSVArchiver(uploader)
		logger.Info("R2 standings archiver initialized")
	} else {
		logger.Warn("R2 not configured, standings archival disabled")
	}

	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("live update hub started")

	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	clusterRepo := repositories.NewPostgresClusterRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	proposalRepo := repositories.NewPostgresProposalRepository(dbConn)
	confirmationRepo := repositories.NewPostgresConfirmationRepository(dbConn)
	historyRepo := repositories.NewPostgresHistoryRepository(dbConn)
	locker := repositories.NewPostgresScopeLocker()
	logger.Info("repositories initialized")

	runner := services.NewTxRunner(dbConn)
	scoringCfg := scoring.Config{
		ProvisionalK:          cfg.ProvisionalK,
		StandardK:             cfg.StandardK,
		ProvisionalThreshold:  cfg.ProvisionalThreshold,
		LeaderboardBasePoints: cfg.LeaderboardBasePoints,
	}
	if err := scoringCfg.Validate(); err != nil {
		logger.Error("invalid scoring configuration", slog.Any("error", err))
		os.Exit(1)
	}
	rankingCfg := rankings.Config{
		FloorRating:           cfg.StartingElo,
		PrestigeWeights:       cfg.PrestigeWeights,
		DefaultPrestigeWeight: cfg.DefaultPrestigeWeight,
		TierBuckets:           toRankingBuckets(cfg.TierBuckets),
	}
	if err := rankingCfg.Validate(); err != nil {
		logger.Error("invalid ranking configuration", slog.Any("error", err))
		os.Exit(1)
	}
	cache := rankings.NewCache(cfg.CacheTTL, cacheMaxEntries)

	ratingService := services.NewRatingService(runner, playerRepo, statsRepo, locker, rankingCfg, cfg.StartingElo, cache, logger)
	matchService := services.NewMatchService(runner, matchRepo, participantRepo, eventRepo, statsRepo, playerRepo, historyRepo, ratingService, scoringCfg, cfg.StartingElo, hub, logger)
	confirmationService := services.NewConfirmationService(runner, matchRepo, participantRepo, proposalRepo, confirmationRepo, matchService, cfg.ProposalTTL, logger)
	undoService := services.NewUndoService(runner, matchRepo, participantRepo, statsRepo, historyRepo, ratingService, hub, logger)
	leaderboardService := services.NewLeaderboardService(runner, eventRepo, statsRepo, ratingService, locker, archiver, cfg.StartingElo, cfg.ScoreRetryAttempts, hub, logger)
	playerService := services.NewPlayerService(runner, playerRepo, statsRepo, historyRepo, ratingService, logger)
	eventService := services.NewEventService(runner, clusterRepo, eventRepo, logger)
	authService := services.NewAuthService(cfg.AdminKeyHash, cfg.JWTSecretKey, logger)
	logger.Info("services initialized")

	// Expired proposals fall back to pending on a fixed cadence.
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		logger.Info("proposal expiry sweeper started", slog.Duration("interval", cfg.SweepInterval))
		for {
			select {
			case <-ticker.C:
				if _, err := confirmationService.SweepExpired(sweepCtx); err != nil {
					logger.Error("proposal sweep failed", slog.Any("error", err))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	authHandler := handlers.NewAuthHandler(authService)
	playerHandler := handlers.NewPlayerHandler(playerService, ratingService)
	eventHandler := handlers.NewEventHandler(eventService)
	matchHandler := handlers.NewMatchHandler(matchService, confirmationService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	adminHandler := handlers.NewAdminHandler(matchService, confirmationService, undoService, ratingService, leaderboardService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authService,
		authHandler,
		playerHandler,
		eventHandler,
		matchHandler,
		leaderboardHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancelSweep()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shut down")
	}
}

func toRankingBuckets(buckets []config.TierBucket) []rankings.TierBucket {
	out := make([]rankings.TierBucket, len(buckets))
	for i, b := range buckets {
		out[i] = rankings.TierBucket{Size: b.Size, Weight: b.Weight}
	}
	return out
}
