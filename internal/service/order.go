package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/nadab-hotels/orders-api/internal/events"
	"github.com/nadab-hotels/orders-api/internal/push"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyBody      = errors.New("a request body is required")
	ErrHotelRequired  = errors.New("hotel is required")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidItem    = errors.New("invalid item")
	ErrInvalidPayment = errors.New("invalid payment")
	ErrEmptyPatch     = errors.New("nothing to update")
	ErrOrderNotFound  = errors.New("order not found")
	ErrItemNotFound   = errors.New("item not found in order")
	ErrOrderConflict  = errors.New("order is being modified, try again")
)

// maxWriteAttempts bounds the read-modify-write retries of updateOrder.
const maxWriteAttempts = 5

// errOrderComplete stops an AddItem update so a follow-up order is created.
var errOrderComplete = errors.New("order is complete")

// OrderStore defines the persistence methods the order service needs.
// Satisfied by database.Store; narrow interface for testability.
type OrderStore interface {
	CreateOrder(ctx context.Context, o database.Order) (database.Order, error)
	GetOrder(ctx context.Context, id string) (database.Order, error)
	ListOrders(ctx context.Context, f database.OrderFilter) ([]database.Order, error)
	ReplaceOrder(ctx context.Context, o database.Order) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status enum.OrderStatus, at time.Time) (database.Order, error)
	DeleteOrder(ctx context.Context, id string) (database.Order, error)
	GetHotel(ctx context.Context, id string) (database.Hotel, error)
	GetHotels(ctx context.Context, ids []string) (map[string]database.Hotel, error)
	GetCustomer(ctx context.Context, id string) (database.Customer, error)
}

// Notifier queues a push notification without blocking.
// Satisfied by *push.Dispatcher.
type Notifier interface {
	Notify(m push.Message) bool
}

// FeeAccruer records the platform fee for a completed order.
// Satisfied by *FeeAggregator.
type FeeAccruer interface {
	Accrue(ctx context.Context, o database.Order) (database.Fee, error)
}

// CreateOrderRequest is the input for creating an order. Items and
// Payments keep their request positions so rejections can point at them.
type CreateOrderRequest struct {
	HotelID    string
	CustomerID string
	ServedBy   string
	Items      []ItemInput
	Payments   []PaymentInput
}

// CreateOrderResult is the stored order and the entries that were left out.
type CreateOrderResult struct {
	Order    database.Order
	Rejected []Rejection
}

// OrderPatch is a partial update; nil fields are left unchanged.
type OrderPatch struct {
	Status     *enum.OrderStatus
	ServedBy   *string
	CustomerID *string
	Items      *[]ItemInput
	Payments   *[]PaymentInput
}

func (p OrderPatch) empty() bool {
	return p.Status == nil && p.ServedBy == nil && p.CustomerID == nil && p.Items == nil && p.Payments == nil
}

// OrderService handles order business logic.
type OrderService struct {
	store    OrderStore
	fees     FeeAccruer
	notifier Notifier
	events   events.Sink
	now      func() time.Time
}

// NewOrderService creates a new OrderService. notifier and sink may be nil.
func NewOrderService(store OrderStore, fees FeeAccruer, notifier Notifier, sink events.Sink) *OrderService {
	return &OrderService{
		store:    store,
		fees:     fees,
		notifier: notifier,
		events:   sink,
		now:      time.Now,
	}
}

// --- Queries ---

// ListOrders returns the orders matching f. An empty filter lists every
// order; callers without an identity get exactly that.
func (s *OrderService) ListOrders(ctx context.Context, f database.OrderFilter) ([]database.Order, error) {
	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListCustomerOrders lists a customer's orders oldest first together with
// the hotels they were placed at, looked up in one batch.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]database.Order, map[string]database.Hotel, error) {
	orders, err := s.store.ListOrders(ctx, database.OrderFilter{CustomerID: customerID, Sort: database.SortOldestFirst})
	if err != nil {
		return nil, nil, fmt.Errorf("list customer orders: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, o := range orders {
		if o.HotelID != "" && !seen[o.HotelID] {
			seen[o.HotelID] = true
			ids = append(ids, o.HotelID)
		}
	}
	hotels, err := s.store.GetHotels(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("get hotels: %w", err)
	}
	return orders, hotels, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (database.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return database.Order{}, notFound(err)
	}
	return o, nil
}

// --- Creation ---

// CreateOrder stores a NEW order built from the valid entries of req and
// notifies the hotel. Invalid entries are reported, not stored.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.HotelID == "" {
		return nil, ErrHotelRequired
	}

	now := s.now()
	o := database.Order{
		ID:         uuid.NewString(),
		Status:     enum.OrderStatusNew,
		HotelID:    req.HotelID,
		CustomerID: req.CustomerID,
		ServedBy:   req.ServedBy,
		Items:      []database.OrderItem{},
		Payments:   []database.OrderPayment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	var rejected []Rejection

	for i, in := range req.Items {
		if err := ValidateItem(in); err != nil {
			rejected = append(rejected, Rejection{Kind: KindItem, Index: i, Reason: err.Error()})
			continue
		}
		o.Items = append(o.Items, newItem(in))
	}
	for i, in := range req.Payments {
		if err := ValidatePayment(in); err != nil {
			rejected = append(rejected, Rejection{Kind: KindPayment, Index: i, Reason: err.Error()})
			continue
		}
		o.Payments = append(o.Payments, newPayment(in, now))
	}
	recomputeTotals(&o)

	created, err := s.store.CreateOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.notifyHotel(ctx, created, created.Items)
	s.publish(ctx, events.OrderCreated, created)
	return &CreateOrderResult{Order: created, Rejected: rejected}, nil
}

// AddItem appends an item to an order. A COMPLETE order is left alone and
// a fresh NEW order holding only the item is created for the same hotel
// and customer.
func (s *OrderService) AddItem(ctx context.Context, orderID string, in ItemInput) (database.Order, error) {
	if err := ValidateItem(in); err != nil {
		return database.Order{}, err
	}
	item := newItem(in)
	now := s.now()

	var closed database.Order
	updated, err := s.updateOrder(ctx, orderID, func(o *database.Order) error {
		if o.Status == enum.OrderStatusComplete {
			closed = *o
			return errOrderComplete
		}
		o.Items = append(o.Items, item)
		o.Status = enum.OrderStatusReOrder
		o.UpdatedAt = now
		recomputeTotals(o)
		return nil
	})
	if errors.Is(err, errOrderComplete) {
		next := database.Order{
			ID:         uuid.NewString(),
			Status:     enum.OrderStatusNew,
			HotelID:    closed.HotelID,
			CustomerID: closed.CustomerID,
			Items:      []database.OrderItem{item},
			Payments:   []database.OrderPayment{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		recomputeTotals(&next)
		created, err := s.store.CreateOrder(ctx, next)
		if err != nil {
			return database.Order{}, fmt.Errorf("create follow-up order: %w", err)
		}
		s.notifyHotel(ctx, created, created.Items)
		s.publish(ctx, events.OrderCreated, created)
		return created, nil
	}
	if err != nil {
		return database.Order{}, err
	}
	s.notifyHotel(ctx, updated, []database.OrderItem{item})
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

// AddPayment records a payment against an existing order.
func (s *OrderService) AddPayment(ctx context.Context, orderID string, in PaymentInput) (database.Order, error) {
	if err := ValidatePayment(in); err != nil {
		return database.Order{}, err
	}
	now := s.now()
	payment := newPayment(in, now)
	updated, err := s.updateOrder(ctx, orderID, func(o *database.Order) error {
		o.Payments = append(o.Payments, payment)
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

// --- Status transitions ---

// SetStatus applies status wholesale in a single store write, so
// concurrent transitions resolve last-writer-wins. COMPLETE accrues the
// platform fee once per call.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, status enum.OrderStatus) (database.Order, error) {
	if !status.Valid() {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	o, err := s.store.UpdateOrderStatus(ctx, orderID, status, s.now())
	if err != nil {
		return database.Order{}, notFound(err)
	}

	s.notifyCustomer(ctx, o)
	if status == enum.OrderStatusComplete {
		s.accrueFee(ctx, o)
	}
	s.publish(ctx, events.OrderUpdated, o)
	return o, nil
}

// SetAllItemsStatus applies a bulk status. ACCEPTED and REJECTED are
// written to every item; the order status follows the bulk table.
func (s *OrderService) SetAllItemsStatus(ctx context.Context, orderID string, bulk enum.BulkStatus) (database.Order, error) {
	status, ok := bulk.OrderStatus()
	if !ok {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, bulk)
	}
	itemStatus, touch := bulk.ItemStatus()
	updated, err := s.updateOrder(ctx, orderID, func(o *database.Order) error {
		if touch {
			for i := range o.Items {
				o.Items[i].Status = itemStatus
			}
		}
		o.Status = status
		o.UpdatedAt = s.now()
		recomputeTotals(o)
		return nil
	})
	if err != nil {
		return database.Order{}, err
	}

	s.notifyCustomer(ctx, updated)
	if status == enum.OrderStatusComplete {
		s.accrueFee(ctx, updated)
	}
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

// SetItemStatus changes one item. A NEW order, or any ACCEPTED item,
// moves the order to BILLS.
func (s *OrderService) SetItemStatus(ctx context.Context, orderID, itemID string, status enum.ItemStatus) (database.Order, error) {
	if !status.Valid() {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	updated, err := s.updateOrder(ctx, orderID, func(o *database.Order) error {
		idx := -1
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrItemNotFound
		}

		if o.Status == enum.OrderStatusNew || status == enum.ItemStatusAccepted {
			o.Status = enum.OrderStatusBills
		}
		o.Items[idx].Status = status
		o.UpdatedAt = s.now()
		recomputeTotals(o)
		return nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifyCustomer(ctx, updated)
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

// --- Edit & delete ---

// EditOrder applies a partial update. Patched items and payments replace
// the existing lists and are validated fail-fast.
func (s *OrderService) EditOrder(ctx context.Context, orderID string, p OrderPatch) (database.Order, error) {
	if p.empty() {
		return database.Order{}, ErrEmptyPatch
	}
	if p.Status != nil && !p.Status.Valid() {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	now := s.now()
	var items []database.OrderItem
	if p.Items != nil {
		items = make([]database.OrderItem, 0, len(*p.Items))
		for i, in := range *p.Items {
			if err := ValidateItem(in); err != nil {
				return database.Order{}, fmt.Errorf("items[%d]: %w", i, err)
			}
			item := newItem(in)
			if in.ID != "" {
				item.ID = in.ID
			}
			item.Status = in.Status.OrDefault()
			items = append(items, item)
		}
	}
	var payments []database.OrderPayment
	if p.Payments != nil {
		payments = make([]database.OrderPayment, 0, len(*p.Payments))
		for i, in := range *p.Payments {
			if err := ValidatePayment(in); err != nil {
				return database.Order{}, fmt.Errorf("payments[%d]: %w", i, err)
			}
			payments = append(payments, newPayment(in, now))
		}
	}

	updated, err := s.updateOrder(ctx, orderID, func(o *database.Order) error {
		if p.Status != nil {
			o.Status = *p.Status
		}
		if p.ServedBy != nil {
			o.ServedBy = *p.ServedBy
		}
		if p.CustomerID != nil {
			o.CustomerID = *p.CustomerID
		}
		if items != nil {
			o.Items = items
		}
		if payments != nil {
			o.Payments = payments
		}
		o.UpdatedAt = now
		recomputeTotals(o)
		return nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.publish(ctx, events.OrderUpdated, updated)
	return updated, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) (database.Order, error) {
	o, err := s.store.DeleteOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, notFound(err)
	}
	s.publish(ctx, events.OrderDeleted, o)
	return o, nil
}

// updateOrder reads the order, applies mutate and writes it back. A write
// that races another one is retried on a fresh read, so no concurrent
// change is overwritten. An error from mutate aborts without writing.
func (s *OrderService) updateOrder(ctx context.Context, orderID string, mutate func(o *database.Order) error) (database.Order, error) {
	for attempt := 1; ; attempt++ {
		o, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return database.Order{}, notFound(err)
		}
		if err := mutate(&o); err != nil {
			return database.Order{}, err
		}
		updated, err := s.store.ReplaceOrder(ctx, o)
		switch {
		case err == nil:
			return updated, nil
		case !errors.Is(err, database.ErrConflict):
			return database.Order{}, notFound(err)
		case attempt == maxWriteAttempts:
			return database.Order{}, ErrOrderConflict
		}
		log.Printf("WARN: order %s changed during update, retrying (attempt %d)", orderID, attempt)
	}
}

// --- Side effects ---

// notifyHotel tells the hotel's device about new items on o.
func (s *OrderService) notifyHotel(ctx context.Context, o database.Order, items []database.OrderItem) {
	if s.notifier == nil {
		return
	}
	hotel, err := s.store.GetHotel(ctx, o.HotelID)
	if err != nil {
		log.Printf("WARN: notify hotel %s for order %s: %v", o.HotelID, o.ID, err)
		return
	}
	if hotel.FCMToken == "" {
		return
	}
	notice := enum.NoticeFor(o.Status)
	s.notifier.Notify(push.Message{
		Token:   hotel.FCMToken,
		OrderID: o.ID,
		Status:  string(o.Status),
		Title:   notice.Message,
		Body:    ItemsSummary(items),
	})
}

// notifyCustomer tells the ordering customer about a status change.
// HIDDEN orders are never announced.
func (s *OrderService) notifyCustomer(ctx context.Context, o database.Order) {
	if s.notifier == nil || o.CustomerID == "" || o.Status == enum.OrderStatusHidden {
		return
	}
	customer, err := s.store.GetCustomer(ctx, o.CustomerID)
	if err != nil {
		log.Printf("WARN: notify customer %s for order %s: %v", o.CustomerID, o.ID, err)
		return
	}
	if customer.FCMToken == "" {
		return
	}
	notice := enum.NoticeFor(o.Status)
	s.notifier.Notify(push.Message{
		Token:   customer.FCMToken,
		OrderID: o.ID,
		Status:  string(o.Status),
		Title:   notice.Update,
		Body:    notice.Message,
	})
}

func (s *OrderService) accrueFee(ctx context.Context, o database.Order) {
	if s.fees == nil {
		return
	}
	if _, err := s.fees.Accrue(ctx, o); err != nil {
		log.Printf("ERROR: accrue fee for order %s: %v", o.ID, err)
	}
}

func (s *OrderService) publish(ctx context.Context, typ string, o database.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.OrderEvent{Type: typ, Order: o, At: s.now()}); err != nil {
		log.Printf("WARN: publish %s for order %s: %v", typ, o.ID, err)
	}
}

// ItemsSummary renders one "<qty> <name> @ <price> = <line total>" line
// per item.
func ItemsSummary(items []database.OrderItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
		lines = append(lines, fmt.Sprintf("%d %s @ %s = %s", it.Qty, it.Name, it.Price.StringFixed(2), line.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

// --- Helpers ---

func newItem(in ItemInput) database.OrderItem {
	return database.OrderItem{
		ID:        uuid.NewString(),
		Name:      in.Name,
		ProductID: in.ProductID,
		Qty:       in.Qty,
		Price:     in.Price,
		Status:    enum.ItemStatusPending,
	}
}

func newPayment(in PaymentInput, at time.Time) database.OrderPayment {
	return database.OrderPayment{
		ID:              uuid.NewString(),
		Method:          in.Method,
		Amount:          in.Amount,
		TransactionCode: in.TransactionCode,
		CreatedAt:       at,
	}
}

// notFound maps the store's ErrNotFound to ErrOrderNotFound.
func notFound(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
