package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
)

// Hub fans job status messages out to the websocket clients watching each job.
type Hub struct {
	// a job can be watched from several tabs
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	JobID string
	Conn  *websocket.Conn
	mu    sync.Mutex // serialises writes
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.JobID] == nil {
		h.clients[client.JobID] = make(map[*Client]struct{})
	}
	h.clients[client.JobID][client] = struct{}{}

	log.Debug().Str("job_id", client.JobID).Int("job_conns", len(h.clients[client.JobID])).Msg("ws client connected")
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.JobID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.JobID)
		}
	}
	log.Debug().Str("job_id", client.JobID).Msg("ws client disconnected")
}

// SendToJob writes msg to every connection watching jobID.
func (h *Hub) SendToJob(jobID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[jobID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("ws write failed")
		}
	}
	return nil
}

// Send writes msg to this connection only.
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// PublishStatus lets the hub stand in for the Redis publisher in single-process mode.
func (h *Hub) PublishStatus(ctx context.Context, msg *pubsub.StatusMessage) error {
	msg.Type = pubsub.MessageTypeJobStatus
	return h.SendToJob(msg.JobID, &Message{Type: msg.Type, Data: msg})
}

// Forward is a pubsub.Subscriber handler.
func (h *Hub) Forward(msg *pubsub.StatusMessage) {
	if err := h.SendToJob(msg.JobID, &Message{Type: msg.Type, Data: msg}); err != nil {
		log.Warn().Err(err).Str("job_id", msg.JobID).Msg("ws forward failed")
	}
}

func (h *Hub) IsWatched(jobID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[jobID]
	return ok && len(conns) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
