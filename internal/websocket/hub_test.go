package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/creatives/internal/models"
)

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubSendToUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	ann := &Client{hub: hub, UserID: "ann", Send: make(chan []byte, 4)}
	bob := &Client{hub: hub, UserID: "bob", Send: make(chan []byte, 4)}
	hub.Register <- ann
	hub.Register <- bob

	hub.SendToUser("ann", NewUserUpdatedMessage("ann"))

	var ev models.PushEvent
	if err := json.Unmarshal(receive(t, ann.Send), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != models.EventUserUpdated || ev.UserID != "ann" {
		t.Errorf("event: got %+v", ev)
	}

	select {
	case msg := <-bob.Send:
		t.Errorf("bob got %s, want nothing", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubShutdownNotifiesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := &Client{hub: hub, UserID: "ann", Send: make(chan []byte, 4)}
	hub.Register <- c
	cancel()
	<-stopped

	var ev models.PushEvent
	if err := json.Unmarshal(receive(t, c.Send), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != models.EventError || ev.Message == "" {
		t.Errorf("event: got %+v, want a shutdown error", ev)
	}
	if _, ok := <-c.Send; ok {
		t.Error("send channel still open after shutdown")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := &Client{hub: hub, UserID: "ann", Send: make(chan []byte, 1)}
	hub.Register <- c
	hub.Leave(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Must not block after the hub is gone.
	for i := 0; i < 32; i++ {
		hub.SendToUser("ann", NewUserUpdatedMessage("ann"))
	}
	hub.Leave(&Client{UserID: "ann"})
}
