package sse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/triviapool/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "session_started",
			data:      `{"id":"1"}`,
			expected:  "event: session_started\ndata: {\"id\":\"1\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "session_completed",
			data:      "{\n  \"winners\": []\n}",
			expected:  "event: session_completed\ndata: {\ndata:   \"winners\": []\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func receive(t *testing.T, client *Client) string {
	t.Helper()
	select {
	case msg := <-client.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(1, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("0xalice")
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("session_started", "data")
	assert.Equal(t, "event: session_started\ndata: data\n\n", receive(t, client))
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(1, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("0xalice")
	require.True(t, hub.Register(client))

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "send channel should be closed")
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub(1, testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient("a"), NewClient("b"), NewClient("c")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.BroadcastEvent("update", "data")
	for _, c := range clients {
		assert.Equal(t, "event: update\ndata: data\n\n", receive(t, c))
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub(1, testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	assert.False(t, hub.Register(NewClient("late")))
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub(1)
	require.NotNil(t, hub1)
	assert.Same(t, hub1, manager.GetOrCreateHub(1))
	assert.NotSame(t, hub1, manager.GetOrCreateHub(2))
	assert.Same(t, hub1, manager.GetHub(1))
	assert.Nil(t, manager.GetHub(99))
}

func TestHubManager_RemoveHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub(1)
	manager.RemoveHub(1)
	assert.Nil(t, manager.GetHub(1))

	// Removing an unknown hub is a no-op
	manager.RemoveHub(42)
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub(1)
	active := manager.GetOrCreateHub(2)
	require.True(t, active.Register(NewClient("watcher")))
	require.Eventually(t, func() bool { return active.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, manager.CleanupEmptyHubs())
	assert.Nil(t, manager.GetHub(1))
	assert.NotNil(t, manager.GetHub(2))
}
