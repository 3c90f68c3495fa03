package notify

import (
	"context"
	"time"
)

// Hub is a Notifier that fans messages out to subscribers. Subscribers that
// fall behind lose messages rather than blocking the sender.
type Hub struct {
	publish     chan Notification
	register    chan chan Notification
	unregister  chan chan Notification
	done        chan struct{}
	subscribers map[chan Notification]bool
	now         func() time.Time
}

// NewHub creates a Hub. Call Run to start delivering.
func NewHub() *Hub {
	return &Hub{
		publish:     make(chan Notification, 32),
		register:    make(chan chan Notification),
		unregister:  make(chan chan Notification),
		done:        make(chan struct{}),
		subscribers: make(map[chan Notification]bool),
		now:         time.Now,
	}
}

// Run delivers notifications until ctx ends, then closes every subscription.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for ch := range h.subscribers {
			close(ch)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-h.register:
			h.subscribers[ch] = true
		case ch := <-h.unregister:
			if h.subscribers[ch] {
				delete(h.subscribers, ch)
				close(ch)
			}
		case n := <-h.publish:
			for ch := range h.subscribers {
				select {
				case ch <- n:
				default:
				}
			}
		}
	}
}

// Subscribe returns a channel of notifications and a function that ends the
// subscription. The channel is closed when either is done.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)
	select {
	case h.register <- ch:
	case <-h.done:
		close(ch)
		return ch, func() {}
	}
	return ch, func() {
		select {
		case h.unregister <- ch:
		case <-h.done:
		}
	}
}

func (h *Hub) Success(msg string) { h.send(LevelSuccess, msg) }
func (h *Hub) Error(msg string)   { h.send(LevelError, msg) }

func (h *Hub) send(level Level, msg string) {
	n := Notification{Level: level, Message: msg, Time: h.now()}
	select {
	case h.publish <- n:
	case <-h.done:
	}
}
