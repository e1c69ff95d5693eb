package database

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money renders an amount as a JSON number with two decimals.
func Money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Money fields shadow the embedded alias fields; encoding/json prefers the
// shallower field.

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	payments := o.Payments
	if payments == nil {
		payments = []OrderPayment{}
	}
	return json.Marshal(struct {
		alias
		Items      []OrderItem    `json:"items"`
		Payments   []OrderPayment `json:"payments"`
		TotalPrice json.Number    `json:"totalPrice"`
		TotalBill  json.Number    `json:"totalBill"`
	}{alias(o), items, payments, Money(o.TotalPrice), Money(o.TotalBill)})
}

func (it OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	return json.Marshal(struct {
		alias
		Status string      `json:"status"`
		Price  json.Number `json:"price"`
	}{alias(it), string(it.Status.OrDefault()), Money(it.Price)})
}

func (p OrderPayment) MarshalJSON() ([]byte, error) {
	type alias OrderPayment
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias(p), Money(p.Amount)})
}

func (f Fee) MarshalJSON() ([]byte, error) {
	type alias Fee
	ids := f.OrderIDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(struct {
		alias
		OrderIDs []string    `json:"ordersId"`
		Total    json.Number `json:"total"`
	}{alias(f), ids, Money(f.Total)})
}

func (t SalesTotals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalItems int64       `json:"totalItems"`
		TotalPrice json.Number `json:"totalPrice"`
	}{t.TotalItems, Money(t.TotalPrice)})
}
