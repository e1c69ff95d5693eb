package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nadab-hotels/orders-api/internal/database"
	"golang.org/x/sync/errgroup"
)

// statsWorkers bounds concurrent SumOrders calls per request.
const statsWorkers = 4

// statsEpoch is the start of the overallTotal window.
var statsEpoch = struct {
	year  int
	month time.Month
	day   int
}{2019, time.January, 1}

// SalesStore defines the aggregation the stats service needs.
// Satisfied by database.Store; narrow interface for testability.
type SalesStore interface {
	SumOrders(ctx context.Context, hotelID string, from, to time.Time) (database.SalesTotals, error)
}

// Stats is the sales summary for one hotel. Monthly is keyed by year then
// by English month name.
type Stats struct {
	Today        database.SalesTotals
	CurrentWeek  database.SalesTotals
	CurrentMonth database.SalesTotals
	CurrentYear  database.SalesTotals
	OverallTotal database.SalesTotals
	Monthly      map[string]map[string]database.SalesTotals
}

// MarshalJSON renders the year buckets alongside the fixed windows:
//
//	{"today": {...}, ..., "2024": {"January": {...}}, "2023": {...}}
func (s Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(s.Monthly))
	for year, months := range s.Monthly {
		out[year] = months
	}
	out["today"] = s.Today
	out["currentWeek"] = s.CurrentWeek
	out["currentMonth"] = s.CurrentMonth
	out["currentYear"] = s.CurrentYear
	out["overallTotal"] = s.OverallTotal
	return json.Marshal(out)
}

// StatsService computes sales windows in the business timezone.
type StatsService struct {
	store SalesStore
	loc   *time.Location
	now   func() time.Time
}

// NewStatsService creates a StatsService that computes windows in loc.
func NewStatsService(store SalesStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{store: store, loc: loc, now: time.Now}
}

type window struct {
	from, to time.Time
	set      func(database.SalesTotals)
}

// Stats sums hotelID's orders over the fixed windows and the rolling
// twelve months. Every window is independent; they run concurrently.
func (s *StatsService) Stats(ctx context.Context, hotelID string) (*Stats, error) {
	now := s.now().In(s.loc)
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	out := &Stats{Monthly: make(map[string]map[string]database.SalesTotals)}
	var mu sync.Mutex

	windows := []window{
		{day, now, func(t database.SalesTotals) { out.Today = t }},
		{day.AddDate(0, 0, -int(now.Weekday())), now, func(t database.SalesTotals) { out.CurrentWeek = t }},
		{time.Date(y, m, 1, 0, 0, 0, 0, s.loc), now, func(t database.SalesTotals) { out.CurrentMonth = t }},
		{time.Date(y, time.January, 1, 0, 0, 0, 0, s.loc), now, func(t database.SalesTotals) { out.CurrentYear = t }},
		{time.Date(statsEpoch.year, statsEpoch.month, statsEpoch.day, 0, 0, 0, 0, s.loc), now, func(t database.SalesTotals) { out.OverallTotal = t }},
	}

	for _, mk := range rollingMonths(y, m) {
		start := time.Date(mk.year, mk.month, 1, 0, 0, 0, 0, s.loc)
		end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		year, month := strconv.Itoa(mk.year), mk.month.String()
		windows = append(windows, window{start, end, func(t database.SalesTotals) {
			mu.Lock()
			defer mu.Unlock()
			if out.Monthly[year] == nil {
				out.Monthly[year] = make(map[string]database.SalesTotals)
			}
			out.Monthly[year][month] = t
		}})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsWorkers)
	for _, w := range windows {
		g.Go(func() error {
			totals, err := s.store.SumOrders(gctx, hotelID, w.from, w.to)
			if err != nil {
				return fmt.Errorf("sum orders %s..%s: %w", w.from.Format(time.DateOnly), w.to.Format(time.DateOnly), err)
			}
			w.set(totals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// rollingMonths returns January..current of this year followed by the
// months after current through December of last year.
func rollingMonths(year int, current time.Month) []yearMonth {
	out := make([]yearMonth, 0, 12)
	for mo := time.January; mo <= current; mo++ {
		out = append(out, yearMonth{year, mo})
	}
	for mo := current + 1; mo <= time.December; mo++ {
		out = append(out, yearMonth{year - 1, mo})
	}
	return out
}
