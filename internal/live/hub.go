// Package live implements the realtime fan-out: three event topics
// (visitors, banner, listings) pushed to every connected client over
// Server-Sent Events.
package live

import (
	"log"
	"sync"
)

// clientBuffer bounds each client's event queue. A client that falls this
// far behind starts losing events instead of slowing everyone else down.
const clientBuffer = 16

// Event is one named payload on the live channel.
type Event struct {
	Name string
	Data any
}

// Client is one connected live subscriber.
type Client struct {
	ch chan Event
}

// Events exposes the client's receive channel to the streaming handler.
func (c *Client) Events() <-chan Event {
	return c.ch
}

// Hub fans events out to every registered client. There is no per-topic
// subscription filtering; every client receives every topic.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a new client and returns it.
func (h *Hub) Register() *Client {
	c := &Client{ch: make(chan Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
	}
	h.mu.Unlock()
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends the event to every connected client with a non-blocking
// send. A slow client's full buffer drops the event rather than stalling
// the broadcaster.
func (h *Hub) Broadcast(name string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- Event{Name: name, Data: data}:
		default:
			log.Printf("WARNING: live client buffer full, dropping %q event", name)
		}
	}
}
