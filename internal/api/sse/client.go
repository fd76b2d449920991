package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/triviapool/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is one connected event stream
type Client struct {
	subscriber  string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(subscriber string) *Client {
	return &Client{
		subscriber:  subscriber,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams a session's events to the requester until it disconnects
func ServeSSE(w http.ResponseWriter, r *http.Request, manager *HubManager, sessionID model.SessionID, subscriber string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(subscriber)
	hub := manager.GetOrCreateHub(sessionID)
	if !hub.Register(client) {
		// Lost a race with empty-hub cleanup
		hub = manager.GetOrCreateHub(sessionID)
		if !hub.Register(client) {
			http.Error(w, "Stream unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
