package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

// userMessage is a message addressed to every connection of one user.
type userMessage struct {
	userID  string
	message []byte
}

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	direct chan userMessage
	done   chan struct{}

	// A map of user IDs to the set of connections they hold.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		direct:        make(chan userMessage, 16),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop and returns when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			shutdown := NewErrorMessage("Server is shutting down")
			for client := range h.clients {
				h.send(client, shutdown)
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case m := <-h.direct:
			for client := range h.subscriptions[m.userID] {
				h.send(client, m.message)
			}
		}
	}
}

// SendToUser queues a message for all connections of a user.
func (h *Hub) SendToUser(userID string, message []byte) {
	select {
	case h.direct <- userMessage{userID: userID, message: message}:
	case <-h.done:
	}
}

// Join registers a client. It reports false if the hub already stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters a client unless the hub already stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		// Slow consumer; cut it loose.
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client) {
	if client.UserID == "" {
		return
	}
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
