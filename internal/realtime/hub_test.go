package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to register the client.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast("appointment.created", map[string]string{"id": "appt-1", "status": "PENDING"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != "appointment.created" {
		t.Errorf("unexpected event type: %s", event.Type)
	}
	payload, ok := event.Payload.(map[string]any)
	if !ok || payload["id"] != "appt-1" {
		t.Errorf("unexpected payload: %#v", event.Payload)
	}
}

func TestBroadcastNilHubSafe(t *testing.T) {
	var hub *Hub
	hub.Broadcast("appointment.updated", nil)
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Must not block or panic.
	hub.Broadcast("appointment.updated", map[string]string{"id": "appt-2"})
}
