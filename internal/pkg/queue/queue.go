package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DispatchMessage asks a worker to send one job to the scorer.
type DispatchMessage struct {
	JobID        string    `json:"job_id"`
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Handler processes one dispatch message.
type Handler func(ctx context.Context, msg *DispatchMessage) error

func encode(msg *DispatchMessage) ([]byte, error) {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*DispatchMessage, error) {
	var msg DispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.JobID == "" {
		return nil, fmt.Errorf("message has no job_id")
	}
	return &msg, nil
}

// Queue is a Redis list used as a FIFO (LPUSH / BRPOP).
type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

func (q *Queue) Push(ctx context.Context, msg *DispatchMessage) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop blocks up to timeout. It returns nil, nil when nothing arrived.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*DispatchMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	return decode([]byte(result[1]))
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
