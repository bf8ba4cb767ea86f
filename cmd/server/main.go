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

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/api"
	"github.com/bcalm/launchpad_server/internal/api/handler"
	"github.com/bcalm/launchpad_server/internal/database"
	"github.com/bcalm/launchpad_server/internal/pkg/cron"
	"github.com/bcalm/launchpad_server/internal/pkg/extract"
	"github.com/bcalm/launchpad_server/internal/pkg/logger"
	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
	"github.com/bcalm/launchpad_server/internal/pkg/queue"
	"github.com/bcalm/launchpad_server/internal/pkg/storage"
	"github.com/bcalm/launchpad_server/internal/pkg/ws"
	"github.com/bcalm/launchpad_server/internal/repository"
	"github.com/bcalm/launchpad_server/internal/scorer"
	"github.com/bcalm/launchpad_server/internal/service"
	"github.com/bcalm/launchpad_server/internal/worker"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		log.Info().Msg("redis connected")
	}

	hub := ws.NewHub()

	// With Redis, status changes may come from worker processes, so the hub
	// listens on the channel instead of being called directly.
	var publisher service.StatusPublisher = hub
	if rdb != nil {
		publisher = pubsub.NewPublisher(rdb)
		ready := make(chan struct{})
		go func() {
			if err := pubsub.NewSubscriber(rdb).Subscribe(ctx, ready, hub.Forward); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("status subscriber stopped")
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			log.Warn().Msg("status subscriber not ready, websocket pushes may be delayed")
		}
	}

	submissionRepo := repository.NewSubmissionRepository(db)
	jobRepo := repository.NewJobRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	eventRepo := repository.NewEventRepository(db)

	jobService := service.NewJobService(jobRepo, publisher)
	submissionService := service.NewSubmissionService(submissionRepo, profileRepo, cfg.Upload.MinTextLength)
	profileService := service.NewProfileService(profileRepo)
	analyticsService := service.NewAnalyticsService(eventRepo)

	archiver, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Storage.Provider).Msg("object storage unavailable, keeping CVs on disk")
		archiver = nil
	}

	dispatcher := scorer.NewDispatcher(cfg.Scorer, cfg.Server.PublicURL, jobService)
	if dispatcher.Mocked() {
		log.Warn().Msg("no scorer webhook configured, serving mock reports")
	}
	processor := worker.NewProcessor(jobRepo, submissionRepo, dispatcher)

	dispatchQueue, closeQueue, err := newDispatchQueue(ctx, cfg, rdb, processor)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Queue.Backend).Msg("failed to init dispatch queue")
	}
	defer closeQueue()

	analysisService := service.NewAnalysisService(
		submissionService,
		jobService,
		extract.New(cfg.PDF),
		archiver,
		dispatchQueue,
		cfg,
	)

	cronService := cron.NewService(jobService, cfg.Watchdog, cfg.Upload)
	cronService.Start()
	defer cronService.Stop()

	router := api.NewRouter(
		handler.NewCVHandler(analysisService, cfg.Upload.MaxSize),
		handler.NewAnalysisHandler(analysisService),
		handler.NewWebSocketHandler(hub, jobService, cfg.CORS.AllowedOrigins),
		handler.NewOnboardingHandler(profileService),
		handler.NewAnalyticsHandler(analyticsService),
		handler.NewHealthHandler(db, jobService, hub),
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("queue", cfg.Queue.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if q, ok := dispatchQueue.(*worker.InlineQueue); ok {
		q.Wait()
	}
	log.Info().Msg("server stopped")
}

// newDispatchQueue picks the queue backend. The returned func releases
// whatever connection the backend holds.
func newDispatchQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client, processor *worker.Processor) (service.DispatchQueue, func(), error) {
	noop := func() {}

	switch cfg.Queue.Backend {
	case "redis":
		if rdb == nil {
			return nil, noop, errors.New("redis queue requires redis.host")
		}
		return queue.NewQueue(rdb, cfg.Queue.AnalysisQueue), noop, nil
	case "amqp":
		q, err := queue.NewAMQPQueue(cfg.Queue.AMQPURL, cfg.Queue.AnalysisQueue)
		if err != nil {
			return nil, noop, err
		}
		return q, func() { q.Close() }, nil
	case "inline", "":
		return worker.NewInlineQueue(ctx, processor.Process), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}
