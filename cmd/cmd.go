package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"festival-tracker-backend/internal/cache"
	"festival-tracker-backend/internal/config"
	"festival-tracker-backend/internal/database"
	"festival-tracker-backend/internal/handlers"
	"festival-tracker-backend/internal/middleware"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/queue"
	"festival-tracker-backend/internal/repository"
	"festival-tracker-backend/internal/services"
	"festival-tracker-backend/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const workerConcurrency = 10

func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(ctx, cfg.Database.DSN(), database.WithMaxConns(cfg.Database.MaxConns))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer redisCache.Close()

	store, err := storage.NewS3Store(ctx, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object store")
	}

	queueClient, err := queue.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create task queue client")
	}
	defer queueClient.Close()

	queueServer, err := queue.NewAsynqServer(cfg.Redis.URL, workerConcurrency, map[string]int{notify.QueueName: 1})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create task queue server")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	voiceRepo := repository.NewVoiceMessageRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// Push notifications run on the worker side of the queue
	var sender notify.Sender = notify.LogSender{}
	if cfg.APNs.Enabled {
		apnsSender, err := notify.NewAPNsSender(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		sender = apnsSender
	}
	notify.NewWorker(userRepo, sender, queueClient).Register(queueServer)
	notifier := notify.NewPublisher(queueClient)

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(userRepo, redisCache, wsHub, cfg.JWT.Secret, cfg.JWT.ExpiryDays)
	groupService := services.NewGroupService(userRepo, notifier, wsHub)
	locationService := services.NewLocationService(locationRepo, redisCache, notifier, wsHub, cfg.Tracker)
	voiceService := services.NewVoiceService(voiceRepo, store, notifier, wsHub, cfg.Tracker.MaxUploadBytes)
	photoService := services.NewPhotoService(photoRepo, locationRepo, store, notifier, wsHub, cfg.Tracker.MaxUploadBytes)
	mediaService := services.NewMediaService(store)

	// Initialize handlers
	router := handlers.NewRouter(handlers.Handlers{
		User:      handlers.NewUserHandler(userService),
		Group:     handlers.NewGroupHandler(groupService, userService),
		Location:  handlers.NewLocationHandler(locationService, userService),
		Voice:     handlers.NewVoiceHandler(voiceService, userService, cfg.Tracker.MaxUploadBytes),
		Photo:     handlers.NewPhotoHandler(photoService, userService, cfg.Tracker.MaxUploadBytes),
		Media:     handlers.NewMediaHandler(mediaService, userService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, userService, locationService),
		Health:    handlers.NewHealthHandler(map[string]handlers.Pinger{"database": db, "cache": redisCache}),
	}, middleware.AuthMiddleware(userService))

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start notification worker
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := queueServer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Notification worker stopped")
		}
	}()

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	wsHub.CloseAll()

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Notification worker did not stop in time")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
