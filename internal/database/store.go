package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
)

// Store is the full persistence surface. Each backend (Mongo, Postgres,
// memory) satisfies it; consumers declare narrower interfaces.
type Store interface {
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	// ReplaceOrder overwrites o if o.Revision matches the stored order and
	// returns ErrConflict otherwise.
	ReplaceOrder(ctx context.Context, o Order) (Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status enum.OrderStatus, at time.Time) (Order, error)
	DeleteOrder(ctx context.Context, id string) (Order, error)
	SumOrders(ctx context.Context, hotelID string, from, to time.Time) (SalesTotals, error)

	AccrueFee(ctx context.Context, hotelID, day, orderID string, amount decimal.Decimal) (Fee, error)
	GetFee(ctx context.Context, hotelID, day string) (Fee, error)

	GetHotel(ctx context.Context, id string) (Hotel, error)
	GetHotels(ctx context.Context, ids []string) (map[string]Hotel, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	UpsertHotel(ctx context.Context, h Hotel) error
	UpsertCustomer(ctx context.Context, c Customer) error

	Close(ctx context.Context) error
}

// Drivers accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	PostgresURL   string
	ConnTimeout   time.Duration
}

// Open connects to the backend named by opts.Driver and prepares its
// collections or tables.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMongo, "":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.ConnTimeout)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.PostgresURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}

func cloneOrder(o Order) Order {
	if o.Items != nil {
		o.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.Payments != nil {
		o.Payments = append([]OrderPayment(nil), o.Payments...)
	}
	return o
}
