package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nadab-hotels/orders-api/internal/events"
)

// ErrBacklogFull is returned by Publish when the broadcast queue is full.
var ErrBacklogFull = errors.New("websocket broadcast backlog full")

// Event is the frame written to dashboard connections.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// hotelEvent routes an event to one hotel's room.
type hotelEvent struct {
	HotelID string
	Event   Event
}

// Hub keeps one room of dashboard connections per hotel and broadcasts
// order events into them.
type Hub struct {
	// Registered clients by hotel ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *hotelEvent
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *hotelEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx ends, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.hotelID] == nil {
				h.rooms[client.hotelID] = make(map[*Client]bool)
			}
			h.rooms[client.hotelID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[event.HotelID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop the connection rather than stall the room.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.hotelID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.hotelID)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	close(h.done)
	for hotelID, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, hotelID)
	}
}

// BroadcastToHotel queues event for a hotel's room without blocking.
func (h *Hub) BroadcastToHotel(hotelID string, event Event) error {
	select {
	case <-h.done:
		return errors.New("websocket hub stopped")
	default:
	}
	select {
	case h.broadcast <- &hotelEvent{HotelID: hotelID, Event: event}:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Publish forwards an order event to the owning hotel's room.
func (h *Hub) Publish(_ context.Context, e events.OrderEvent) error {
	payload, err := json.Marshal(e.Order)
	if err != nil {
		return err
	}
	return h.BroadcastToHotel(e.Order.HotelID, Event{Type: e.Type, Payload: payload})
}

// join registers c unless the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c unless the hub has stopped, in which case shutdown
// has already closed its channel.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
