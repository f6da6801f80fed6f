package jobqueue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/models"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", hub.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dial event hub")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventHub_BroadcastReachesConnectedClient(t *testing.T) {
	hub := NewEventHub(common.NewSilentLogger())
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)

	// Registration races the first broadcast; wait until the hub sees us.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond, "client never registered")

	job := &models.Job{ID: "j1", State: models.JobStateRunning, WorkerName: "w1"}
	hub.Broadcast(models.JobEvent{Type: "job_started", Job: job, Timestamp: time.Now()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "read broadcast event")

	var event models.JobEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "job_started", event.Type)
	require.NotNil(t, event.Job)
	assert.Equal(t, "j1", event.Job.ID)
	assert.Equal(t, "w1", event.Job.WorkerName)
}

func TestEventHub_BroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewEventHub(common.NewSilentLogger())
	go hub.Run()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Broadcast(models.JobEvent{Type: "job_queued", Timestamp: time.Now()})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked with no clients connected")
	}
}

func TestEventHub_ClientCountTracksDisconnect(t *testing.T) {
	hub := NewEventHub(common.NewSilentLogger())
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond, "client never unregistered after close")
}
