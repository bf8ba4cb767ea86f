package cron

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
)

// TimeoutErrorText is stored on jobs the watchdog gives up on.
const TimeoutErrorText = "Analysis timed out"

// StaleJobSweeper is satisfied by service.JobService.
type StaleJobSweeper interface {
	FailStale(ctx context.Context, olderThan time.Duration, errorText string, dryRun bool) ([]string, error)
}

// Service runs the background sweeps: stale processing jobs and expired uploads.
type Service struct {
	jobs        StaleJobSweeper
	interval    time.Duration
	staleAfter  time.Duration
	uploadDir   string
	expireHours int
	stopChan    chan struct{}
	stopOnce    sync.Once
}

func NewService(jobs StaleJobSweeper, watchdog config.WatchdogConfig, upload config.UploadConfig) *Service {
	return &Service{
		jobs:        jobs,
		interval:    watchdog.Interval,
		staleAfter:  watchdog.StaleAfter,
		uploadDir:   upload.Dir,
		expireHours: upload.ExpireHours,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the sweeps. A non-positive watchdog interval disables it.
func (s *Service) Start() {
	if s.interval > 0 && s.staleAfter > 0 {
		go s.runWatchdog()
	}
	go s.runCleanup()
	log.Info().Dur("interval", s.interval).Dur("stale_after", s.staleAfter).Msg("cron service started")
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Info().Msg("cron service stopped")
	})
}

func (s *Service) runWatchdog() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.SweepStale(context.Background(), false); err != nil {
				log.Error().Err(err).Msg("stale job sweep failed")
			}
		}
	}
}

// SweepStale fails jobs that have been processing longer than stale_after.
func (s *Service) SweepStale(ctx context.Context, dryRun bool) ([]string, error) {
	ids, err := s.jobs.FailStale(ctx, s.staleAfter, TimeoutErrorText, dryRun)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		log.Warn().Strs("job_ids", ids).Bool("dry_run", dryRun).Msg("stale analysis jobs timed out")
	}
	return ids, nil
}

func (s *Service) runCleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n := s.CleanupUploads(false); n > 0 {
				log.Info().Int("removed", n).Msg("expired uploads cleaned")
			}
		}
	}
}

// CleanupUploads removes saved CV files older than expire_hours and returns
// how many were (or with dryRun would be) removed.
func (s *Service) CleanupUploads(dryRun bool) int {
	if s.uploadDir == "" || s.expireHours <= 0 {
		return 0
	}
	expire := time.Duration(s.expireHours) * time.Hour

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", s.uploadDir).Msg("failed to read upload dir")
		}
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) <= expire {
			continue
		}

		path := filepath.Join(s.uploadDir, entry.Name())
		if dryRun {
			cleaned++
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("failed to remove expired upload")
			continue
		}
		cleaned++
	}
	return cleaned
}
