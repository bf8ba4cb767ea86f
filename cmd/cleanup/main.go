package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/database"
	"github.com/bcalm/launchpad_server/internal/pkg/cron"
	"github.com/bcalm/launchpad_server/internal/pkg/logger"
	"github.com/bcalm/launchpad_server/internal/repository"
	"github.com/bcalm/launchpad_server/internal/service"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Report what would change without touching jobs or files")
	uploadExpire = flag.Int("upload-expire", 0, "Hours to keep uploaded CVs (0 uses upload.expire_hours)")
	staleAfter   = flag.Duration("stale-after", 0, "Fail jobs processing longer than this (0 uses watchdog.stale_after)")
	sweepJobs    = flag.Bool("sweep-jobs", true, "Fail stale processing jobs")
	cleanUploads = flag.Bool("clean-uploads", true, "Remove expired upload files")
)

func main() {
	flag.Parse()
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

	if *uploadExpire > 0 {
		cfg.Upload.ExpireHours = *uploadExpire
	}
	if *staleAfter > 0 {
		cfg.Watchdog.StaleAfter = *staleAfter
	}

	log.Info().Bool("dry_run", *dryRun).Msg("starting cleanup")

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	// No publisher: websocket watchers are served by the API process.
	jobService := service.NewJobService(repository.NewJobRepository(db), nil)
	svc := cron.NewService(jobService, cfg.Watchdog, cfg.Upload)

	if *sweepJobs {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		ids, err := svc.SweepStale(ctx, *dryRun)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("stale job sweep failed")
		} else {
			log.Info().Int("jobs", len(ids)).Strs("job_ids", ids).Dur("stale_after", cfg.Watchdog.StaleAfter).Msg("stale jobs swept")
		}
	}

	if *cleanUploads {
		removed := svc.CleanupUploads(*dryRun)
		log.Info().Int("files", removed).Int("expire_hours", cfg.Upload.ExpireHours).Msg("expired uploads cleaned")
	}

	if *dryRun {
		log.Warn().Msg("dry run, nothing was changed; run with -dry-run=false to apply")
	}
}
