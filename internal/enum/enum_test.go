package enum_test

import (
	"testing"

	"github.com/nadab-hotels/orders-api/internal/enum"
)

func TestNoticeFor_EveryStatusHasEntry(t *testing.T) {
	seen := map[enum.Notice]enum.OrderStatus{}
	for _, s := range enum.OrderStatuses {
		n := enum.NoticeFor(s)
		if n.Message == "" {
			t.Errorf("status %s: empty message", s)
		}
		if s == enum.OrderStatusHidden {
			continue
		}
		if prev, dup := seen[n]; dup {
			t.Errorf("status %s shares notice with %s", s, prev)
		}
		seen[n] = s
	}
}

func TestNoticeFor_Table(t *testing.T) {
	tests := []struct {
		status  enum.OrderStatus
		message string
		update  string
	}{
		{enum.OrderStatusNew, "You have a new order", ""},
		{enum.OrderStatusBills, "Your order has been accepted and will be delivered soon", "accepted"},
		{enum.OrderStatusPaid, "Your bill has been paid", "paid"},
		{enum.OrderStatusSales, "Your bill is ready", "billed"},
		{enum.OrderStatusRejected, "Your order was rejected", "rejected"},
		{enum.OrderStatusReOrder, "Item added to order", "re-ordered"},
		{enum.OrderStatusComplete, "Your order is complete. Thank you for using Nadab Hotel Services", "complete"},
		{enum.OrderStatusCanceled, "Your order was canceled", "canceled"},
		{enum.OrderStatusHidden, "Your order was updated", "update"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			n := enum.NoticeFor(tt.status)
			if n.Message != tt.message {
				t.Errorf("message: got %q, want %q", n.Message, tt.message)
			}
			if n.Update != tt.update {
				t.Errorf("update: got %q, want %q", n.Update, tt.update)
			}
		})
	}
}

func TestNoticeFor_UnknownFallsBack(t *testing.T) {
	n := enum.NoticeFor(enum.OrderStatus("SHIPPED"))
	if n != enum.DefaultNotice {
		t.Errorf("got %+v, want %+v", n, enum.DefaultNotice)
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range enum.OrderStatuses {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []enum.OrderStatus{"", "new", "DONE", "CANCELLED"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestBulkStatusMapping(t *testing.T) {
	tests := []struct {
		bulk      enum.BulkStatus
		order     enum.OrderStatus
		item      enum.ItemStatus
		touchItem bool
	}{
		{enum.BulkStatusAccepted, enum.OrderStatusBills, enum.ItemStatusAccepted, true},
		{enum.BulkStatusRejected, enum.OrderStatusRejected, enum.ItemStatusRejected, true},
		{enum.BulkStatusPaid, enum.OrderStatusSales, "", false},
		{enum.BulkStatusComplete, enum.OrderStatusComplete, "", false},
		{enum.BulkStatusCancel, enum.OrderStatusCanceled, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.bulk.OrderStatus()
		if !ok || got != tt.order {
			t.Errorf("%s: order status got %v (%v), want %v", tt.bulk, got, ok, tt.order)
		}
		item, touch := tt.bulk.ItemStatus()
		if touch != tt.touchItem || item != tt.item {
			t.Errorf("%s: item status got %v (%v), want %v (%v)", tt.bulk, item, touch, tt.item, tt.touchItem)
		}
	}

	if _, ok := enum.BulkStatus("HIDDEN").OrderStatus(); ok {
		t.Error("HIDDEN should not be a bulk status")
	}
}

func TestItemStatusOrDefault(t *testing.T) {
	if got := enum.ItemStatus("").OrDefault(); got != enum.ItemStatusPending {
		t.Errorf("got %v, want PENDING", got)
	}
	if got := enum.ItemStatusAccepted.OrDefault(); got != enum.ItemStatusAccepted {
		t.Errorf("got %v, want ACCEPTED", got)
	}
}
