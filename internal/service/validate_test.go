package service

import (
	"errors"
	"testing"

	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		in      ItemInput
		wantErr bool
	}{
		{"valid", item("Tea", 1, "0.01"), false},
		{"max qty", item("Tea", 100, "1"), false},
		{"missing name", item("", 1, "1"), true},
		{"zero qty", item("Tea", 0, "1"), true},
		{"qty over limit", item("Tea", 101, "1"), true},
		{"zero price", item("Tea", 1, "0"), true},
		{"negative price", item("Tea", 1, "-2"), true},
		{"sub-cent price", item("Tea", 1, "0.005"), true},
		{"trailing zeros", item("Tea", 1, "12.500"), false},
		{"decode failure", ItemInput{Err: errors.New("bad json")}, true},
		{"unknown status", ItemInput{Name: "Tea", Qty: 1, Price: decimal.NewFromInt(1), Status: "LOST"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidItem) {
				t.Errorf("error %v does not wrap ErrInvalidItem", err)
			}
		})
	}
}

func TestValidatePayment(t *testing.T) {
	if err := ValidatePayment(PaymentInput{Method: "cash", Amount: decimal.NewFromInt(5)}); err != nil {
		t.Errorf("valid: got %v", err)
	}
	for _, in := range []PaymentInput{
		{Amount: decimal.NewFromInt(5)},
		{Method: "cash"},
		{Method: "cash", Amount: decimal.NewFromInt(-1)},
		{Method: "cash", Amount: decimal.RequireFromString("1.999")},
		{Err: errors.New("bad json")},
	} {
		if err := ValidatePayment(in); !errors.Is(err, ErrInvalidPayment) {
			t.Errorf("%+v: got %v, want ErrInvalidPayment", in, err)
		}
	}
}

var itemGen = rapid.Custom(func(t *rapid.T) database.OrderItem {
	return database.OrderItem{
		Name:   "x",
		Qty:    rapid.IntRange(1, 100).Draw(t, "qty"),
		Price:  decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "cents"), -2),
		Status: rapid.SampledFrom([]enum.ItemStatus{"", enum.ItemStatusPending, enum.ItemStatusAccepted, enum.ItemStatusRejected}).Draw(t, "status"),
	}
})

func TestRecomputeTotals_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := database.Order{Items: rapid.SliceOfN(itemGen, 0, 20).Draw(t, "items")}
		recomputeTotals(&o)

		wantItems := 0
		wantPrice := decimal.Zero
		wantBill := decimal.Zero
		for _, it := range o.Items {
			if it.Status == enum.ItemStatusRejected {
				continue
			}
			wantItems += it.Qty
			wantPrice = wantPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
			if it.Status == enum.ItemStatusAccepted {
				wantBill = wantBill.Add(it.Price)
			}
		}
		if o.TotalItems != wantItems {
			t.Fatalf("totalItems: got %d, want %d", o.TotalItems, wantItems)
		}
		if !o.TotalPrice.Equal(wantPrice) {
			t.Fatalf("totalPrice: got %s, want %s", o.TotalPrice, wantPrice)
		}
		if !o.TotalBill.Equal(wantBill) {
			t.Fatalf("totalBill: got %s, want %s", o.TotalBill, wantBill)
		}
		if o.TotalBill.GreaterThan(o.TotalPrice) {
			t.Fatalf("totalBill %s exceeds totalPrice %s", o.TotalBill, o.TotalPrice)
		}
	})
}

func TestRecomputeTotals_AcceptAll(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		o := database.Order{Items: rapid.SliceOfN(itemGen, 1, 20).Draw(t, "items")}
		sum := decimal.Zero
		for i := range o.Items {
			o.Items[i].Status = enum.ItemStatusAccepted
			sum = sum.Add(o.Items[i].Price)
		}
		recomputeTotals(&o)
		if !o.TotalBill.Equal(sum) {
			t.Fatalf("totalBill: got %s, want %s", o.TotalBill, sum)
		}
	})
}
