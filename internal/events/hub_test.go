package events

import (
	"testing"

	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.NewNop())
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := newTestHub()
	userID := uuid.New()
	client := hub.NewClient(userID)
	hub.Subscribe(client, userID.String())

	hub.BroadcastToUser(userID, EventXPAwarded, map[string]any{"amount": 25})

	select {
	case msg := <-client.Outbound:
		if msg.Event != EventXPAwarded {
			t.Fatalf("event = %q, want %q", msg.Event, EventXPAwarded)
		}
		if msg.Channel != userID.String() {
			t.Fatalf("channel = %q, want %q", msg.Channel, userID.String())
		}
	default:
		t.Fatal("expected a buffered message for the subscribed client")
	}
}

func TestHubBroadcastSkipsOtherChannels(t *testing.T) {
	hub := newTestHub()
	alice := hub.NewClient(uuid.New())
	bob := hub.NewClient(uuid.New())
	hub.Subscribe(alice, alice.UserID.String())
	hub.Subscribe(bob, bob.UserID.String())

	hub.BroadcastToUser(alice.UserID, EventCourseEnrolled, nil)

	if len(alice.Outbound) != 1 {
		t.Fatalf("alice buffered %d messages, want 1", len(alice.Outbound))
	}
	if len(bob.Outbound) != 0 {
		t.Fatalf("bob buffered %d messages, want 0", len(bob.Outbound))
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := newTestHub()
	client := hub.NewClient(uuid.New())
	channel := client.UserID.String()

	hub.Subscribe(client, channel)
	hub.Unsubscribe(client, channel)

	hub.Broadcast(Message{Channel: channel, Event: EventLevelUp})
	if len(client.Outbound) != 0 {
		t.Fatalf("unsubscribed client buffered %d messages, want 0", len(client.Outbound))
	}
	if client.Channels[channel] {
		t.Fatal("channel still tracked on client after Unsubscribe")
	}
}

func TestHubEmptyChannelIgnored(t *testing.T) {
	hub := newTestHub()
	client := hub.NewClient(uuid.New())
	hub.Subscribe(client, "   ")

	if len(client.Channels) != 0 {
		t.Fatalf("blank channel subscribed: %v", client.Channels)
	}

	// broadcasting without a channel is a no-op
	hub.Broadcast(Message{Event: EventLevelUp})
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub()
	client := hub.NewClient(uuid.New())
	channel := client.UserID.String()
	hub.Subscribe(client, channel)

	// one past capacity; the overflow message is dropped, not blocked on
	for i := 0; i < cap(client.Outbound)+1; i++ {
		hub.Broadcast(Message{Channel: channel, Event: EventXPAwarded})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("buffered %d messages, want %d", len(client.Outbound), cap(client.Outbound))
	}
}

func TestHubCloseClientRemovesSubscriptions(t *testing.T) {
	hub := newTestHub()
	client := hub.NewClient(uuid.New())
	channel := client.UserID.String()
	hub.Subscribe(client, channel)

	hub.CloseClient(client)

	// broadcast after close must not panic on the closed channel
	hub.Broadcast(Message{Channel: channel, Event: EventLevelUp})

	if _, open := <-client.Outbound; open {
		t.Fatal("outbound channel still open after CloseClient")
	}
}
