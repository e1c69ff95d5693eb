package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. It backs the test suites and
// the "memory" driver for local development.
type MemoryStore struct {
	mu        sync.Mutex
	orders    map[string]Order
	fees      map[feeKey]Fee
	hotels    map[string]Hotel
	customers map[string]Customer
}

type feeKey struct {
	hotelID string
	day     string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]Order),
		fees:      make(map[feeKey]Fee),
		hotels:    make(map[string]Hotel),
		customers: make(map[string]Customer),
	}
}

func (s *MemoryStore) CreateOrder(_ context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	s.orders[o.ID] = cloneOrder(o)
	return cloneOrder(o), nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for _, o := range s.orders {
		if f.Matches(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Sort == SortOldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ReplaceOrder(_ context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[o.ID]
	if !ok {
		return Order{}, ErrNotFound
	}
	if cur.Revision != o.Revision {
		return Order{}, ErrConflict
	}
	o.CreatedAt = cur.CreatedAt
	o.Revision++
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	s.orders[o.ID] = cloneOrder(o)
	return cloneOrder(o), nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status enum.OrderStatus, at time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	o.Revision++
	s.orders[id] = o
	return cloneOrder(o), nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	delete(s.orders, id)
	return o, nil
}

func (s *MemoryStore) SumOrders(_ context.Context, hotelID string, from, to time.Time) (SalesTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := SalesTotals{TotalPrice: decimal.Zero}
	for _, o := range s.orders {
		if hotelID != "" && o.HotelID != hotelID {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		totals.TotalItems += int64(o.TotalItems)
		totals.TotalPrice = totals.TotalPrice.Add(o.TotalPrice)
	}
	return totals, nil
}

func (s *MemoryStore) AccrueFee(_ context.Context, hotelID, day, orderID string, amount decimal.Decimal) (Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := feeKey{hotelID: hotelID, day: day}
	fee, ok := s.fees[k]
	if !ok {
		fee = Fee{HotelID: hotelID, Day: day, Total: decimal.Zero}
	}
	fee.Total = fee.Total.Add(amount)
	fee.NumberOfOrders++
	fee.OrderIDs = append(append([]string(nil), fee.OrderIDs...), orderID)
	s.fees[k] = fee
	return fee, nil
}

func (s *MemoryStore) GetFee(_ context.Context, hotelID, day string) (Fee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fee, ok := s.fees[feeKey{hotelID: hotelID, day: day}]
	if !ok {
		return Fee{}, ErrNotFound
	}
	return fee, nil
}

func (s *MemoryStore) GetHotel(_ context.Context, id string) (Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotels[id]
	if !ok {
		return Hotel{}, ErrNotFound
	}
	return h, nil
}

func (s *MemoryStore) GetHotels(_ context.Context, ids []string) (map[string]Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Hotel, len(ids))
	for _, id := range ids {
		if h, ok := s.hotels[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id string) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) UpsertHotel(_ context.Context, h Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotels[h.ID] = h
	return nil
}

func (s *MemoryStore) UpsertCustomer(_ context.Context, c Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
