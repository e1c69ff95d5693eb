package enum

// ── Group A: State machines ──

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusBills    OrderStatus = "BILLS"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusSales    OrderStatus = "SALES"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusReOrder  OrderStatus = "RE-ORDER"
	OrderStatusComplete OrderStatus = "COMPLETE"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusHidden   OrderStatus = "HIDDEN"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusBills,
	OrderStatusPaid,
	OrderStatusSales,
	OrderStatusRejected,
	OrderStatusReOrder,
	OrderStatusComplete,
	OrderStatusCanceled,
	OrderStatusHidden,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ItemStatus is the review state of a single order item.
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING"
	ItemStatusAccepted ItemStatus = "ACCEPTED"
	ItemStatusRejected ItemStatus = "REJECTED"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusAccepted, ItemStatusRejected:
		return true
	}
	return false
}

// OrDefault maps the empty status to PENDING.
func (s ItemStatus) OrDefault() ItemStatus {
	if s == "" {
		return ItemStatusPending
	}
	return s
}

// ── Group B: Bulk item transitions ──

// BulkStatus is the status applied to every item of an order at once.
type BulkStatus string

const (
	BulkStatusAccepted BulkStatus = "ACCEPTED"
	BulkStatusRejected BulkStatus = "REJECTED"
	BulkStatusPaid     BulkStatus = "PAID"
	BulkStatusComplete BulkStatus = "COMPLETE"
	BulkStatusCancel   BulkStatus = "CANCEL"
)

var bulkOrderStatus = map[BulkStatus]OrderStatus{
	BulkStatusAccepted: OrderStatusBills,
	BulkStatusRejected: OrderStatusRejected,
	BulkStatusPaid:     OrderStatusSales,
	BulkStatusComplete: OrderStatusComplete,
	BulkStatusCancel:   OrderStatusCanceled,
}

// OrderStatus returns the order status a bulk transition moves the order to.
func (s BulkStatus) OrderStatus() (OrderStatus, bool) {
	st, ok := bulkOrderStatus[s]
	return st, ok
}

// ItemStatus returns the status written to every item, if the bulk
// transition touches items at all.
func (s BulkStatus) ItemStatus() (ItemStatus, bool) {
	switch s {
	case BulkStatusAccepted:
		return ItemStatusAccepted, true
	case BulkStatusRejected:
		return ItemStatusRejected, true
	}
	return "", false
}
