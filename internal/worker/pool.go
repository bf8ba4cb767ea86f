package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/pkg/queue"
)

var popTimeout = 5 * time.Second

// RunRedisWorkers pops dispatch messages with n concurrent workers until ctx
// is cancelled.
func RunRedisWorkers(ctx context.Context, q *queue.Queue, n int, handler queue.Handler) {
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runRedisWorker(ctx, workerID, q, handler)
		}(i)
	}
	wg.Wait()
}

func runRedisWorker(ctx context.Context, workerID int, q *queue.Queue, handler queue.Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", workerID).Msg("worker shutting down")
			return
		default:
		}

		msg, err := q.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Int("worker", workerID).Msg("failed to pop dispatch")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		log.Info().Int("worker", workerID).Str("job_id", msg.JobID).Msg("processing dispatch")
		if err := handler(ctx, msg); err != nil {
			log.Error().Err(err).Int("worker", workerID).Str("job_id", msg.JobID).Msg("dispatch failed")
		}
	}
}
