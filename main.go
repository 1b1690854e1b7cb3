package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/handlers"
	"github.com/NomadCrew/feedback-hub-backend/internal/app"
	"github.com/NomadCrew/feedback-hub-backend/internal/events"
	"github.com/NomadCrew/feedback-hub-backend/internal/websocket"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/service"
	"github.com/NomadCrew/feedback-hub-backend/router"
	"github.com/NomadCrew/feedback-hub-backend/services"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open feedback provider: %v", err)
	}

	// Feedback pipeline
	submitter := service.NewSubmissionService(res.Provider, service.WithWriteTimeout(cfg.Provider.WriteTimeout()))
	projection := service.NewLatestProjection(res.Provider, cfg.Provider.FetchTimeout())
	forms := service.NewFormRegistry(cfg.Forms.MaxForms, cfg.Forms.TTL())

	var boardOpts []services.BoardOption

	var publisher *events.RedisPublisher
	if cfg.Events.Enabled {
		publisher = events.NewRedisPublisher(res.Redis, events.ConfigFrom(cfg.Events))
		boardOpts = append(boardOpts, services.WithEventPublisher(publisher))
	}

	var notifications *services.NotificationQueue
	if cfg.Notification.Enabled {
		notifications = services.NewNotificationQueue(cfg.WorkerPool)
		notifications.Start()
		boardOpts = append(boardOpts, services.WithNotifier(services.NewSubmissionNotifier(&cfg.Notification, notifications)))
	}

	board := services.NewFeedbackBoard(submitter, projection, forms, boardOpts...)
	log.Infow("Feedback board ready", "instanceId", board.InstanceID(), "provider", res.Provider.Name())

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	if publisher != nil {
		remote, err := publisher.Subscribe(feedCtx)
		if err != nil {
			log.Fatalf("Failed to subscribe to change feed: %v", err)
		}
		go board.Follow(feedCtx, remote)
	}

	// Live stream
	hub := websocket.NewHub(board, websocket.HubConfig{
		PingInterval: cfg.Server.WSPingInterval(),
		WriteTimeout: 10 * time.Second,
	})
	wsHandler := websocket.NewHandler(hub, &cfg.Server)

	healthService := services.NewHealthService(res.Provider, res.Redis, cfg.Server.Version)
	healthService.SetActiveConnectionsGetter(hub.GetConnectionCount)

	r := router.SetupRouter(router.Dependencies{
		Config:          cfg,
		FeedbackHandler: handlers.NewFeedbackHandler(board),
		HealthHandler:   handlers.NewHealthHandler(healthService),
		WSHandler:       wsHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Live stream shutdown failed", "error", err)
	}

	stopFeed()
	if publisher != nil {
		if err := publisher.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Change feed shutdown failed", "error", err)
		}
	}

	if notifications != nil {
		queueCtx, queueCancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds)*time.Second)
		if err := notifications.Shutdown(queueCtx); err != nil {
			log.Errorw("Notification queue shutdown failed", "error", err)
		}
		queueCancel()
	}

	if err := res.Close(); err != nil {
		log.Errorw("Failed to close provider", "error", err)
	}

	log.Info("Server exited")
}
