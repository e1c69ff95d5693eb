// Package events fans order changes out to live subscribers: the
// WebSocket hub and, when configured, a RabbitMQ topic exchange.
package events

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nadab-hotels/orders-api/internal/database"
)

// Event types.
const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
)

type OrderEvent struct {
	Type  string         `json:"type"`
	Order database.Order `json:"order"`
	At    time.Time      `json:"at"`
}

// RoutingKey is "order.<status>" for live orders and "order.deleted" for
// removed ones, e.g. "order.re-order".
func (e OrderEvent) RoutingKey() string {
	if e.Type == OrderDeleted {
		return OrderDeleted
	}
	return "order." + strings.ToLower(string(e.Order.Status))
}

// Sink receives order events. Satisfied by *ws.Hub, *Publisher and Fanout.
type Sink interface {
	Publish(ctx context.Context, e OrderEvent) error
}

// Fanout delivers each event to every sink; one failing sink does not stop
// the others.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, e OrderEvent) error {
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, e); err != nil {
			log.Printf("WARN: publish %s for order %s: %v", e.Type, e.Order.ID, err)
		}
	}
	return nil
}
