package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/shopspring/decimal"
)

// feeRate is the platform commission on an order's accepted bill.
var feeRate = decimal.RequireFromString("0.0099")

// FeeStore defines the persistence methods the fee aggregator needs.
// Satisfied by database.Store; narrow interface for testability.
type FeeStore interface {
	AccrueFee(ctx context.Context, hotelID, day, orderID string, amount decimal.Decimal) (database.Fee, error)
}

// FeeAggregator accrues the per-hotel daily fee for completed orders.
type FeeAggregator struct {
	store FeeStore
	loc   *time.Location
	now   func() time.Time
}

// NewFeeAggregator creates a FeeAggregator that buckets days in loc.
func NewFeeAggregator(store FeeStore, loc *time.Location) *FeeAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &FeeAggregator{store: store, loc: loc, now: time.Now}
}

// Accrue adds o's fee to today's bucket for its hotel. The store applies
// the increment atomically so concurrent completions are all counted.
func (a *FeeAggregator) Accrue(ctx context.Context, o database.Order) (database.Fee, error) {
	fee, err := a.store.AccrueFee(ctx, o.HotelID, FeeDay(a.now(), a.loc), o.ID, FeeAmount(o.TotalBill))
	if err != nil {
		return database.Fee{}, fmt.Errorf("accrue fee: %w", err)
	}
	return fee, nil
}

// FeeAmount is 0.99% of bill rounded to cents.
func FeeAmount(bill decimal.Decimal) decimal.Decimal {
	return bill.Mul(feeRate).Round(2)
}

// FeeDay formats t as the "D/M/YYYY" day key in loc.
func FeeDay(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}
