package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/database"
	"github.com/bcalm/launchpad_server/internal/pkg/logger"
	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
	"github.com/bcalm/launchpad_server/internal/pkg/queue"
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
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	// Job status reaches the API's websocket hub through Redis. Without it
	// clients fall back to polling.
	var (
		rdb       *redis.Client
		publisher service.StatusPublisher
	)
	if cfg.Redis.Enabled() {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		publisher = pubsub.NewPublisher(rdb)
	}

	jobRepo := repository.NewJobRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	jobService := service.NewJobService(jobRepo, publisher)

	dispatcher := scorer.NewDispatcher(cfg.Scorer, cfg.Server.PublicURL, jobService)
	processor := worker.NewProcessor(jobRepo, submissionRepo, dispatcher)

	workers := cfg.Queue.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	log.Info().
		Str("backend", cfg.Queue.Backend).
		Int("max_workers", workers).
		Bool("mock_scorer", dispatcher.Mocked()).
		Msg("worker started")

	switch cfg.Queue.Backend {
	case "redis":
		if rdb == nil {
			log.Fatal().Msg("redis queue requires redis.host")
		}
		worker.RunRedisWorkers(ctx, queue.NewQueue(rdb, cfg.Queue.AnalysisQueue), workers, processor.Process)
	case "amqp":
		q, err := queue.NewAMQPQueue(cfg.Queue.AMQPURL, cfg.Queue.AnalysisQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect amqp")
		}
		defer q.Close()
		if err := q.Consume(ctx, workers, processor.Process); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("amqp consumer stopped")
		}
	default:
		log.Fatal().Str("backend", cfg.Queue.Backend).Msg("inline queue runs inside the server, nothing to consume")
	}

	log.Info().Msg("worker shutdown complete")
}
