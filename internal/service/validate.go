package service

import (
	"fmt"

	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	minItemQty = 1
	maxItemQty = 100

	// Money is stored with two decimal places on every backend.
	moneyPlaces = 2
)

// Rejection kinds.
const (
	KindItem    = "item"
	KindPayment = "payment"
)

// Rejection reports one create-order entry that was left out and why.
// Index is the entry's position in the request's items or payments list.
type Rejection struct {
	Kind   string
	Index  int
	Reason string
}

// ItemInput is an item as supplied by a client. ID and Status are only
// honoured by EditOrder; new items always start PENDING with a fresh id.
// Err marks an entry the caller could not decode.
type ItemInput struct {
	ID        string
	Name      string
	ProductID string
	Qty       int
	Price     decimal.Decimal
	Status    enum.ItemStatus
	Err       error
}

// PaymentInput is a payment as supplied by a client. Err marks an entry
// the caller could not decode.
type PaymentInput struct {
	Method          string
	Amount          decimal.Decimal
	TransactionCode string
	Err             error
}

// ValidateItem checks the item rules: name present, qty in 1..100 and a
// positive price with at most two decimal places.
func ValidateItem(in ItemInput) error {
	if in.Err != nil {
		return fmt.Errorf("%w: malformed item: %v", ErrInvalidItem, in.Err)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if in.Qty < minItemQty || in.Qty > maxItemQty {
		return fmt.Errorf("%w: qty must be between %d and %d", ErrInvalidItem, minItemQty, maxItemQty)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", ErrInvalidItem)
	}
	if !wholeCents(in.Price) {
		return fmt.Errorf("%w: price has more than %d decimal places", ErrInvalidItem, moneyPlaces)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidItem, in.Status)
	}
	return nil
}

// ValidatePayment checks the payment rules: method present and a positive
// amount.
func ValidatePayment(in PaymentInput) error {
	if in.Err != nil {
		return fmt.Errorf("%w: malformed payment: %v", ErrInvalidPayment, in.Err)
	}
	if in.Method == "" {
		return fmt.Errorf("%w: method is required", ErrInvalidPayment)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidPayment)
	}
	if !wholeCents(in.Amount) {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidPayment, moneyPlaces)
	}
	return nil
}

func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyPlaces))
}

// recomputeTotals derives every total from the items:
//
//	totalItems = Σ qty          over items not REJECTED
//	totalPrice = Σ qty × price  over items not REJECTED
//	totalBill  = Σ price        over ACCEPTED items
func recomputeTotals(o *database.Order) {
	items := 0
	price := decimal.Zero
	bill := decimal.Zero
	for _, it := range o.Items {
		status := it.Status.OrDefault()
		if status == enum.ItemStatusRejected {
			continue
		}
		items += it.Qty
		price = price.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
		if status == enum.ItemStatusAccepted {
			bill = bill.Add(it.Price)
		}
	}
	o.TotalItems = items
	o.TotalPrice = price
	o.TotalBill = bill
}
