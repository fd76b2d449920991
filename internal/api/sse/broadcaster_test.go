package sse

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/triviapool/internal/events"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/testutil"
)

func TestBroadcaster_PublishToSubscribedSession(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	hub := manager.GetOrCreateHub(7)
	client := NewClient("0xwatcher")
	require.True(t, hub.Register(client))

	event := events.NewEvent(time.Unix(1700000000, 0).UTC(), model.EventPayoutIssued, 7,
		model.TransferPayload{Recipient: "0xalice", Amount: 80})
	broadcaster.Publish(context.Background(), event)

	msg := receive(t, client)
	assert.True(t, strings.HasPrefix(msg, "event: payout_issued\ndata: {"), msg)
	assert.Contains(t, msg, `"recipient":"0xalice"`)
	assert.Contains(t, msg, `"amount":"80"`)
	assert.Contains(t, msg, `"session_id":7`)
}

func TestBroadcaster_SkipsSessionsWithoutHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	broadcaster.Publish(context.Background(), events.NewEvent(time.Now(), model.EventSessionStarted, 3, nil))

	assert.Nil(t, manager.GetHub(3), "publishing must not create hubs")
}

func TestBroadcaster_OnlyMatchingSession(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	other := NewClient("other")
	require.True(t, manager.GetOrCreateHub(2).Register(other))

	broadcaster.Publish(context.Background(), events.NewEvent(time.Now(), model.EventSessionStarted, 1, nil))

	select {
	case msg := <-other.send:
		t.Fatalf("unexpected message for other session: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
