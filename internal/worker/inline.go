package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/pkg/queue"
)

// InlineQueue runs each dispatch on its own goroutine inside the server
// process. It is used when no broker is configured.
type InlineQueue struct {
	ctx     context.Context
	handler queue.Handler
	wg      sync.WaitGroup
}

// NewInlineQueue runs handler under ctx, which outlives the HTTP request
// that pushed the message.
func NewInlineQueue(ctx context.Context, handler queue.Handler) *InlineQueue {
	return &InlineQueue{ctx: ctx, handler: handler}
}

func (q *InlineQueue) Push(_ context.Context, msg *queue.DispatchMessage) error {
	if err := q.ctx.Err(); err != nil {
		return err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.handler(q.ctx, msg); err != nil {
			log.Error().Err(err).Str("job_id", msg.JobID).Msg("inline dispatch failed")
		}
	}()
	return nil
}

// Wait blocks until every pushed dispatch has returned.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
