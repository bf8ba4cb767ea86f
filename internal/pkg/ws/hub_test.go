package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// dialHub starts a server that registers each connection under jobID and
// returns the client side of one connection.
func dialHub(t *testing.T, hub *Hub, jobID string) (*websocket.Conn, func()) {
	t.Helper()

	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{JobID: jobID, Conn: conn}
		hub.Register(client)
		close(registered)

		go func() {
			defer hub.Unregister(client)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client not registered")
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsWatched("job-1"))
}

func TestHub_SendToJob_NotWatched(t *testing.T) {
	hub := NewHub()

	err := hub.SendToJob("job-1", &Message{Type: "job_status"})
	assert.NoError(t, err)
}

func TestHub_PublishStatus(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub, "job-1")
	defer cleanup()

	assert.True(t, hub.IsWatched("job-1"))
	assert.Equal(t, 1, hub.ConnectionCount())

	err := hub.PublishStatus(context.Background(), &pubsub.StatusMessage{JobID: "job-1", Status: "complete"})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string               `json:"type"`
		Data pubsub.StatusMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, pubsub.MessageTypeJobStatus, msg.Type)
	assert.Equal(t, "job-1", msg.Data.JobID)
	assert.Equal(t, "complete", msg.Data.Status)
}

func TestHub_Forward_OnlyMatchingJob(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialHub(t, hub, "job-1")
	defer cleanup()

	hub.Forward(&pubsub.StatusMessage{Type: pubsub.MessageTypeJobStatus, JobID: "job-2", Status: "failed"})
	hub.Forward(&pubsub.StatusMessage{Type: pubsub.MessageTypeJobStatus, JobID: "job-1", Status: "failed", Error: "boom"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":"job-1"`)
	assert.Contains(t, string(data), `"error":"boom"`)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	client := &Client{JobID: "job-1"}

	hub.Register(client)
	assert.True(t, hub.IsWatched("job-1"))

	hub.Unregister(client)
	assert.False(t, hub.IsWatched("job-1"))
	assert.Equal(t, 0, hub.ConnectionCount())

	// unregistering twice is harmless
	hub.Unregister(client)
}
