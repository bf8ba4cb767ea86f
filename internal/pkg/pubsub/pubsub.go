package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelJobStatus = "cv_job_status"

	MessageTypeJobStatus = "job_status"
)

// StatusMessage announces a job's terminal transition.
type StatusMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"job_id"`
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Publisher publishes status messages on a Redis channel.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishStatus(ctx context.Context, msg *StatusMessage) error {
	msg.Type = MessageTypeJobStatus

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal status message: %w", err)
	}

	return p.client.Publish(ctx, ChannelJobStatus, data).Err()
}

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe blocks, calling handler for each message until ctx is done.
// ready, if non-nil, is closed once the subscription is active.
func (s *Subscriber) Subscribe(ctx context.Context, ready chan<- struct{}, handler func(*StatusMessage)) error {
	sub := s.client.Subscribe(ctx, ChannelJobStatus)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var statusMsg StatusMessage
			if err := json.Unmarshal([]byte(msg.Payload), &statusMsg); err != nil {
				continue
			}

			handler(&statusMsg)
		}
	}
}
