package notify

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), WithBufferSize(1))
	sub := hub.subscribe("s1")

	n := session.Notification{Kind: session.KindVoteRecorded}
	hub.Publish(t.Context(), "s1", n)
	hub.Publish(t.Context(), "s1", n)

	if got := hub.Subscribers("s1"); got != 0 {
		t.Fatalf("Subscribers() = %d, want 0 after overflow", got)
	}

	// The buffered message is still readable, then the channel is closed.
	if _, ok := <-sub.send; !ok {
		t.Fatal("expected buffered message before close")
	}
	if _, ok := <-sub.send; ok {
		t.Error("send channel should be closed")
	}

	// Unsubscribing again must not panic on a closed channel.
	hub.unsubscribe(sub)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.subscribe("s1")
	hub.subscribe("s2")

	hub.Close()

	if _, ok := <-sub.send; ok {
		t.Error("send channel should be closed")
	}
	if hub.Subscribers("s1")+hub.Subscribers("s2") != 0 {
		t.Error("subscribers remain after Close()")
	}
	hub.unsubscribe(sub)
}
