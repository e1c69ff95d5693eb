package enum

// Notice is the text pushed to a device when an order reaches a status.
// Update is the short tag used as the notification title.
type Notice struct {
	Message string
	Update  string
}

// DefaultNotice is used for any status without its own entry.
var DefaultNotice = Notice{Message: "Your order was updated", Update: "update"}

var notices = map[OrderStatus]Notice{
	OrderStatusNew:      {Message: "You have a new order", Update: ""},
	OrderStatusBills:    {Message: "Your order has been accepted and will be delivered soon", Update: "accepted"},
	OrderStatusPaid:     {Message: "Your bill has been paid", Update: "paid"},
	OrderStatusSales:    {Message: "Your bill is ready", Update: "billed"},
	OrderStatusRejected: {Message: "Your order was rejected", Update: "rejected"},
	OrderStatusReOrder:  {Message: "Item added to order", Update: "re-ordered"},
	OrderStatusComplete: {Message: "Your order is complete. Thank you for using Nadab Hotel Services", Update: "complete"},
	OrderStatusCanceled: {Message: "Your order was canceled", Update: "canceled"},
	OrderStatusHidden:   DefaultNotice,
}

// NoticeFor returns the notice for status. It never fails.
func NoticeFor(status OrderStatus) Notice {
	if n, ok := notices[status]; ok {
		return n
	}
	return DefaultNotice
}
