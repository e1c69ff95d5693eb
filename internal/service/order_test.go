package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/nadab-hotels/orders-api/internal/events"
	"github.com/nadab-hotels/orders-api/internal/push"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockNotifier records every queued message.
type mockNotifier struct {
	mu   sync.Mutex
	sent []push.Message
}

func (m *mockNotifier) Notify(msg push.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return true
}

func (m *mockNotifier) messages() []push.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]push.Message(nil), m.sent...)
}

// mockFees implements FeeAccruer with configurable behavior.
type mockFees struct {
	mu       sync.Mutex
	accrued  []string
	accrueFn func(ctx context.Context, o database.Order) (database.Fee, error)
}

func (m *mockFees) Accrue(ctx context.Context, o database.Order) (database.Fee, error) {
	m.mu.Lock()
	m.accrued = append(m.accrued, o.ID)
	m.mu.Unlock()
	if m.accrueFn != nil {
		return m.accrueFn(ctx, o)
	}
	return database.Fee{}, nil
}

// mockSink implements events.Sink.
type mockSink struct {
	mu   sync.Mutex
	seen []events.OrderEvent
}

func (m *mockSink) Publish(ctx context.Context, e events.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, e)
	return nil
}

// --- Helpers ---

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *OrderService
	store    *database.MemoryStore
	notifier *mockNotifier
	fees     *mockFees
	sink     *mockSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	ctx := context.Background()
	if err := store.UpsertHotel(ctx, database.Hotel{ID: "h1", BusinessName: "Blue Lagoon", FCMToken: "hotel-device"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertCustomer(ctx, database.Customer{ID: "c1", FullName: "Ada", FCMToken: "customer-device"}); err != nil {
		t.Fatal(err)
	}
	f := &fixture{store: store, notifier: &mockNotifier{}, fees: &mockFees{}, sink: &mockSink{}}
	f.svc = NewOrderService(store, f.fees, f.notifier, f.sink)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func item(name string, qty int, price string) ItemInput {
	return ItemInput{Name: name, Qty: qty, Price: decimal.RequireFromString(price)}
}

func (f *fixture) create(t *testing.T, items ...ItemInput) database.Order {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{HotelID: "h1", CustomerID: "c1", Items: items})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res.Order
}

// --- Tests ---

func TestCreateOrder_RejectsInvalidEntries(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		HotelID:  "h1",
		Items:    []ItemInput{item("Tea", 2, "10"), item("Cake", 200, "5")},
		Payments: []PaymentInput{{Method: "cash", Amount: decimal.NewFromInt(20)}, {Method: "", Amount: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Order.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(res.Order.Items))
	}
	if res.Order.TotalItems != 2 {
		t.Errorf("totalItems: got %d, want 2", res.Order.TotalItems)
	}
	if !res.Order.TotalPrice.Equal(decimal.NewFromInt(20)) {
		t.Errorf("totalPrice: got %s, want 20", res.Order.TotalPrice)
	}
	if res.Order.Status != enum.OrderStatusNew {
		t.Errorf("status: got %s, want NEW", res.Order.Status)
	}
	if res.Order.Items[0].Status != enum.ItemStatusPending {
		t.Errorf("item status: got %s, want PENDING", res.Order.Items[0].Status)
	}
	if len(res.Order.Payments) != 1 {
		t.Errorf("payments: got %d, want 1", len(res.Order.Payments))
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("rejected: got %d, want 2", len(res.Rejected))
	}
	if r := res.Rejected[0]; r.Kind != KindItem || r.Index != 1 {
		t.Errorf("rejected[0]: got %+v, want item #1", r)
	}
	if r := res.Rejected[1]; r.Kind != KindPayment || r.Index != 1 {
		t.Errorf("rejected[1]: got %+v, want payment #1", r)
	}
}

func TestCreateOrder_MalformedEntryIsRejectedNotFatal(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		HotelID: "h1",
		Items:   []ItemInput{{Err: errors.New("cannot unmarshal string into qty")}, item("Tea", 1, "3")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Order.Items) != 1 || len(res.Rejected) != 1 || res.Rejected[0].Index != 0 {
		t.Errorf("got items=%d rejected=%+v", len(res.Order.Items), res.Rejected)
	}
}

func TestCreateOrder_HotelRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{Items: []ItemInput{item("Tea", 1, "1")}})
	if !errors.Is(err, ErrHotelRequired) {
		t.Errorf("error: got %v, want ErrHotelRequired", err)
	}
}

func TestCreateOrder_NotifiesHotel(t *testing.T) {
	f := newFixture(t)
	f.create(t, item("Tea", 2, "10"), item("Cake", 1, "4.5"))

	msgs := f.notifier.messages()
	if len(msgs) != 1 {
		t.Fatalf("messages: got %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Token != "hotel-device" {
		t.Errorf("token: got %q, want hotel-device", m.Token)
	}
	if m.Title != "You have a new order" {
		t.Errorf("title: got %q", m.Title)
	}
	want := "2 Tea @ 10.00 = 20.00\n1 Cake @ 4.50 = 4.50"
	if m.Body != want {
		t.Errorf("body: got %q, want %q", m.Body, want)
	}
	if len(f.sink.seen) != 1 || f.sink.seen[0].Type != events.OrderCreated {
		t.Errorf("events: got %+v", f.sink.seen)
	}
}

func TestAddItem_AppendsAndMarksReOrder(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 2, "10"))
	before := len(o.Items)

	got, err := f.svc.AddItem(context.Background(), o.ID, item("Cake", 1, "5"))
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got.ID != o.ID {
		t.Errorf("id: got %s, want %s", got.ID, o.ID)
	}
	if len(got.Items) != before+1 {
		t.Errorf("items: got %d, want %d", len(got.Items), before+1)
	}
	if got.Status != enum.OrderStatusReOrder {
		t.Errorf("status: got %s, want RE-ORDER", got.Status)
	}
	if got.TotalItems != 3 || !got.TotalPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("totals: got %d / %s, want 3 / 25", got.TotalItems, got.TotalPrice)
	}
	msgs := f.notifier.messages()
	if last := msgs[len(msgs)-1]; last.Body != "1 Cake @ 5.00 = 5.00" {
		t.Errorf("notification body: got %q", last.Body)
	}
}

func TestAddItem_CompleteOrderStartsNewOrder(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 2, "10"))
	if _, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusComplete); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.AddItem(context.Background(), o.ID, item("Cake", 1, "5"))
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got.ID == o.ID {
		t.Fatal("expected a new order")
	}
	if got.Status != enum.OrderStatusNew || got.HotelID != "h1" || got.CustomerID != "c1" {
		t.Errorf("new order: got status %s hotel %s customer %s", got.Status, got.HotelID, got.CustomerID)
	}
	if len(got.Items) != 1 || got.Items[0].Name != "Cake" {
		t.Errorf("items: got %+v", got.Items)
	}

	orig, _ := f.svc.GetOrder(context.Background(), o.ID)
	if orig.Status != enum.OrderStatusComplete || len(orig.Items) != 1 {
		t.Errorf("original changed: status %s items %d", orig.Status, len(orig.Items))
	}
}

func TestAddItem_InvalidAndMissing(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "1"))

	if _, err := f.svc.AddItem(context.Background(), o.ID, item("Tea", 0, "1")); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("qty 0: got %v, want ErrInvalidItem", err)
	}
	if _, err := f.svc.AddItem(context.Background(), "nope", item("Tea", 1, "1")); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: got %v, want ErrOrderNotFound", err)
	}
}

func TestAddPayment(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))

	got, err := f.svc.AddPayment(context.Background(), o.ID, PaymentInput{Method: "mpesa", Amount: decimal.NewFromInt(10), TransactionCode: "QX12"})
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if len(got.Payments) != 1 || got.Payments[0].TransactionCode != "QX12" {
		t.Errorf("payments: got %+v", got.Payments)
	}
	if _, err := f.svc.AddPayment(context.Background(), o.ID, PaymentInput{Method: "cash"}); !errors.Is(err, ErrInvalidPayment) {
		t.Errorf("zero amount: got %v, want ErrInvalidPayment", err)
	}
}

func TestSetAllItemsStatus_AcceptMovesToBills(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 2, "10"), item("Cake", 1, "4"))

	got, err := f.svc.SetAllItemsStatus(context.Background(), o.ID, enum.BulkStatusAccepted)
	if err != nil {
		t.Fatalf("set all: %v", err)
	}
	if got.Status != enum.OrderStatusBills {
		t.Errorf("status: got %s, want BILLS", got.Status)
	}
	for _, it := range got.Items {
		if it.Status != enum.ItemStatusAccepted {
			t.Errorf("item %s: got %s, want ACCEPTED", it.Name, it.Status)
		}
	}
	if !got.TotalBill.Equal(decimal.NewFromInt(14)) {
		t.Errorf("totalBill: got %s, want 14", got.TotalBill)
	}
}

func TestSetAllItemsStatus_RejectZeroesTotals(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 2, "10"))

	got, err := f.svc.SetAllItemsStatus(context.Background(), o.ID, enum.BulkStatusRejected)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != enum.OrderStatusRejected || got.TotalItems != 0 || !got.TotalPrice.IsZero() {
		t.Errorf("got status %s totals %d / %s", got.Status, got.TotalItems, got.TotalPrice)
	}
}

func TestSetAllItemsStatus_CompleteAccruesFee(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))

	if _, err := f.svc.SetAllItemsStatus(context.Background(), o.ID, enum.BulkStatusComplete); err != nil {
		t.Fatal(err)
	}
	if len(f.fees.accrued) != 1 {
		t.Errorf("accruals: got %d, want 1", len(f.fees.accrued))
	}
	if _, err := f.svc.SetAllItemsStatus(context.Background(), o.ID, enum.BulkStatus("BOGUS")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bogus: got %v, want ErrInvalidStatus", err)
	}
}

func TestSetItemStatus(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 2, "10"), item("Cake", 1, "4"))

	got, err := f.svc.SetItemStatus(context.Background(), o.ID, o.Items[1].ID, enum.ItemStatusRejected)
	if err != nil {
		t.Fatalf("set item: %v", err)
	}
	if got.Status != enum.OrderStatusBills {
		t.Errorf("NEW order: got %s, want BILLS", got.Status)
	}
	if got.TotalItems != 2 || !got.TotalPrice.Equal(decimal.NewFromInt(20)) {
		t.Errorf("totals: got %d / %s, want 2 / 20", got.TotalItems, got.TotalPrice)
	}

	if _, err := f.svc.SetItemStatus(context.Background(), o.ID, "ghost", enum.ItemStatusAccepted); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item: got %v, want ErrItemNotFound", err)
	}
	if _, err := f.svc.SetItemStatus(context.Background(), o.ID, o.Items[0].ID, "MAYBE"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status: got %v, want ErrInvalidStatus", err)
	}
}

func TestSetStatus_CompleteAccruesOnce(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "100"))

	got, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusComplete)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != enum.OrderStatusComplete {
		t.Errorf("status: got %s", got.Status)
	}
	if len(f.fees.accrued) != 1 || f.fees.accrued[0] != o.ID {
		t.Errorf("accruals: got %v, want [%s]", f.fees.accrued, o.ID)
	}

	if _, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusPaid); err != nil {
		t.Fatal(err)
	}
	if len(f.fees.accrued) != 1 {
		t.Errorf("PAID accrued a fee: got %d", len(f.fees.accrued))
	}
}

func TestSetStatus_FeeFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.fees.accrueFn = func(ctx context.Context, o database.Order) (database.Fee, error) {
		return database.Fee{}, errors.New("store down")
	}
	o := f.create(t, item("Tea", 1, "10"))
	if _, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusComplete); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetStatus_NotifiesCustomerUnlessHidden(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))
	start := len(f.notifier.messages())

	if _, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusPaid); err != nil {
		t.Fatal(err)
	}
	msgs := f.notifier.messages()
	if len(msgs) != start+1 {
		t.Fatalf("messages: got %d, want %d", len(msgs), start+1)
	}
	m := msgs[len(msgs)-1]
	if m.Token != "customer-device" || m.Title != "paid" || m.Body != "Your bill has been paid" {
		t.Errorf("message: got %+v", m)
	}

	if _, err := f.svc.SetStatus(context.Background(), o.ID, enum.OrderStatusHidden); err != nil {
		t.Fatal(err)
	}
	if n := len(f.notifier.messages()); n != start+1 {
		t.Errorf("HIDDEN notified: got %d messages, want %d", n, start+1)
	}
}

func TestSetStatus_Invalid(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))
	if _, err := f.svc.SetStatus(context.Background(), o.ID, "SHIPPED"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("got %v, want ErrInvalidStatus", err)
	}
	if _, err := f.svc.SetStatus(context.Background(), "nope", enum.OrderStatusPaid); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("got %v, want ErrOrderNotFound", err)
	}
}

func TestSetStatus_LastWriterWins(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))

	statuses := []enum.OrderStatus{enum.OrderStatusBills, enum.OrderStatusPaid, enum.OrderStatusSales, enum.OrderStatusCanceled}
	var wg sync.WaitGroup
	for _, st := range statuses {
		wg.Add(1)
		go func(st enum.OrderStatus) {
			defer wg.Done()
			if _, err := f.svc.SetStatus(context.Background(), o.ID, st); err != nil {
				t.Errorf("set %s: %v", st, err)
			}
		}(st)
	}
	wg.Wait()

	got, err := f.svc.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range statuses {
		if got.Status == st {
			found = true
		}
	}
	if !found {
		t.Errorf("final status %s is not one of the written values", got.Status)
	}
	if len(got.Items) != 1 {
		t.Errorf("items lost: got %d", len(got.Items))
	}
}

// slowReadStore widens the gap between reading an order and writing it
// back so concurrent updates overlap.
type slowReadStore struct {
	*database.MemoryStore
	delay time.Duration
}

func (s *slowReadStore) GetOrder(ctx context.Context, id string) (database.Order, error) {
	o, err := s.MemoryStore.GetOrder(ctx, id)
	time.Sleep(s.delay)
	return o, err
}

// conflictStore fails every write as if another writer always got there
// first.
type conflictStore struct {
	*database.MemoryStore
	mu      sync.Mutex
	replays int
}

func (s *conflictStore) ReplaceOrder(ctx context.Context, o database.Order) (database.Order, error) {
	s.mu.Lock()
	s.replays++
	s.mu.Unlock()
	return database.Order{}, database.ErrConflict
}

func TestAddItem_ConcurrentBulkUpdateKeepsItem(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))
	f.svc.store = &slowReadStore{MemoryStore: f.store, delay: 20 * time.Millisecond}

	var (
		wg    sync.WaitGroup
		added database.Order
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if added, err = f.svc.AddItem(context.Background(), o.ID, item("Cake", 1, "5")); err != nil {
			t.Errorf("add item: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := f.svc.SetAllItemsStatus(context.Background(), o.ID, enum.BulkStatusAccepted); err != nil {
			t.Errorf("accept all: %v", err)
		}
	}()
	wg.Wait()

	stored, err := f.store.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(added.Items) != 2 {
		t.Fatalf("add item response: got %d items, want 2", len(added.Items))
	}
	if len(stored.Items) != 2 {
		t.Fatalf("stored items: got %d, want 2 (status %s)", len(stored.Items), stored.Status)
	}
	if stored.TotalItems != 2 || !stored.TotalPrice.Equal(decimal.NewFromInt(15)) {
		t.Errorf("totals: got %d / %s, want 2 / 15", stored.TotalItems, stored.TotalPrice)
	}
}

func TestSetItemStatus_ConcurrentItemsBothApplied(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"), item("Cake", 1, "5"))
	f.svc.store = &slowReadStore{MemoryStore: f.store, delay: 10 * time.Millisecond}

	var wg sync.WaitGroup
	for _, it := range o.Items {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.svc.SetItemStatus(context.Background(), o.ID, id, enum.ItemStatusAccepted); err != nil {
				t.Errorf("set item %s: %v", id, err)
			}
		}(it.ID)
	}
	wg.Wait()

	stored, _ := f.store.GetOrder(context.Background(), o.ID)
	for _, it := range stored.Items {
		if it.Status != enum.ItemStatusAccepted {
			t.Errorf("item %s: got %s, want ACCEPTED", it.Name, it.Status)
		}
	}
	if !stored.TotalBill.Equal(decimal.NewFromInt(15)) {
		t.Errorf("totalBill: got %s, want 15", stored.TotalBill)
	}
}

func TestAddItem_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))
	store := &conflictStore{MemoryStore: f.store}
	f.svc.store = store
	sent := len(f.notifier.messages())

	_, err := f.svc.AddItem(context.Background(), o.ID, item("Cake", 1, "5"))
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("error: got %v, want ErrOrderConflict", err)
	}
	if store.replays != maxWriteAttempts {
		t.Errorf("write attempts: got %d, want %d", store.replays, maxWriteAttempts)
	}
	if got := len(f.notifier.messages()); got != sent {
		t.Errorf("notifications: got %d new, want none", got-sent)
	}
	stored, _ := f.store.GetOrder(context.Background(), o.ID)
	if len(stored.Items) != 1 {
		t.Errorf("stored items: got %d, want 1", len(stored.Items))
	}
}

func TestEditOrder(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))
	served := "Wanjiru"
	items := []ItemInput{
		{ID: "keep", Name: "Tea", Qty: 3, Price: decimal.NewFromInt(10), Status: enum.ItemStatusAccepted},
	}

	got, err := f.svc.EditOrder(context.Background(), o.ID, OrderPatch{ServedBy: &served, Items: &items})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.ServedBy != served {
		t.Errorf("servedBy: got %q", got.ServedBy)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "keep" || got.Items[0].Status != enum.ItemStatusAccepted {
		t.Errorf("items: got %+v", got.Items)
	}
	if got.TotalItems != 3 || !got.TotalBill.Equal(decimal.NewFromInt(10)) {
		t.Errorf("totals: got %d / bill %s", got.TotalItems, got.TotalBill)
	}
	if len(f.fees.accrued) != 0 {
		t.Errorf("edit accrued a fee")
	}
}

func TestEditOrder_Errors(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))

	if _, err := f.svc.EditOrder(context.Background(), o.ID, OrderPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("empty: got %v, want ErrEmptyPatch", err)
	}
	bad := []ItemInput{item("Tea", 1, "1"), item("", 1, "1")}
	_, err := f.svc.EditOrder(context.Background(), o.ID, OrderPatch{Items: &bad})
	if !errors.Is(err, ErrInvalidItem) || !strings.Contains(err.Error(), "items[1]") {
		t.Errorf("bad item: got %v", err)
	}
	st := enum.OrderStatusPaid
	if _, err := f.svc.EditOrder(context.Background(), "nope", OrderPatch{Status: &st}); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing: got %v, want ErrOrderNotFound", err)
	}
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	o := f.create(t, item("Tea", 1, "10"))

	got, err := f.svc.DeleteOrder(context.Background(), o.ID)
	if err != nil || got.ID != o.ID {
		t.Fatalf("delete: got %s, %v", got.ID, err)
	}
	if _, err := f.svc.DeleteOrder(context.Background(), o.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("second delete: got %v, want ErrOrderNotFound", err)
	}
	last := f.sink.seen[len(f.sink.seen)-1]
	if last.Type != events.OrderDeleted || last.Order.ID != o.ID {
		t.Errorf("event: got %s for %s", last.Type, last.Order.ID)
	}
}

func TestListCustomerOrders_EmbedsHotels(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, item("Tea", 1, "10"))
	f.svc.now = func() time.Time { return fixedNow.Add(time.Minute) }
	f.create(t, item("Cake", 1, "5"))

	orders, hotels, err := f.svc.ListCustomerOrders(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 || orders[0].ID != first.ID {
		t.Errorf("oldest first: got %d orders, first %s", len(orders), orders[0].ID)
	}
	if hotels["h1"].BusinessName != "Blue Lagoon" {
		t.Errorf("hotels: got %+v", hotels)
	}
}

func TestItemsSummary(t *testing.T) {
	got := ItemsSummary([]database.OrderItem{
		{Name: "Tea", Qty: 3, Price: decimal.RequireFromString("1.5")},
	})
	if want := "3 Tea @ 1.50 = 4.50"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
