package database

import (
	"errors"
	"time"

	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by every store when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by ReplaceOrder when the stored order was written
// after the caller read it.
var ErrConflict = errors.New("record was modified concurrently")

// Order is a customer's purchase request. Items and payments are embedded
// and are never addressed outside their order.
type Order struct {
	ID         string           `json:"id"`
	Status     enum.OrderStatus `json:"status"`
	HotelID    string           `json:"hotel"`
	CustomerID string           `json:"customer,omitempty"`
	ServedBy   string           `json:"servedBy,omitempty"`
	Items      []OrderItem      `json:"items"`
	Payments   []OrderPayment   `json:"payments"`
	TotalItems int              `json:"totalItems"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	TotalBill  decimal.Decimal  `json:"totalBill"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`

	// Revision counts writes to the order. ReplaceOrder only succeeds when
	// it still matches the stored value.
	Revision int64 `json:"-"`
}

type OrderItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ProductID string          `json:"product,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Status    enum.ItemStatus `json:"status"`
}

type OrderPayment struct {
	ID              string          `json:"id"`
	Method          string          `json:"method"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionCode string          `json:"transactionCode"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Fee is the platform's revenue share for one hotel on one calendar day.
type Fee struct {
	HotelID        string          `json:"hotel"`
	Day            string          `json:"day"`
	Total          decimal.Decimal `json:"total"`
	NumberOfOrders int             `json:"numberOfOrders"`
	OrderIDs       []string        `json:"ordersId"`
}

// Hotel and Customer are directory records owned by other services; this
// API only reads them to find device tokens and display names.
type Hotel struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
	FCMToken     string `json:"-"`
}

type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	FCMToken string `json:"-"`
}

// SalesTotals is the aggregate of a set of orders.
type SalesTotals struct {
	TotalItems int64
	TotalPrice decimal.Decimal
}

// SortOrder controls the creation-time ordering of ListOrders.
type SortOrder int

const (
	SortNewestFirst SortOrder = iota
	SortOldestFirst
)

// OrderFilter narrows ListOrders. Empty ids match everything.
type OrderFilter struct {
	HotelID    string
	CustomerID string
	Sort       SortOrder
}

// Matches reports whether o passes the filter.
func (f OrderFilter) Matches(o Order) bool {
	if f.HotelID != "" && o.HotelID != f.HotelID {
		return false
	}
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	return true
}
