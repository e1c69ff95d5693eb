package database

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps orders as rows with items and payments in JSONB
// columns, so an order is still read and written as one unit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore applies pending migrations and opens a pool.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	if err := Migrate(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate runs the embedded migrations up to the latest version.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(url))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// pgx5URL rewrites a postgres:// URL to the scheme the migrate pgx driver
// registers under.
func pgx5URL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

type itemJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ProductID string          `json:"product,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
}

type paymentJSON struct {
	ID              string          `json:"id"`
	Method          string          `json:"method"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionCode string          `json:"transactionCode"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func encodeLines(o Order) (items, payments []byte, err error) {
	is := make([]itemJSON, len(o.Items))
	for i, it := range o.Items {
		is[i] = itemJSON{ID: it.ID, Name: it.Name, ProductID: it.ProductID, Qty: it.Qty, Price: it.Price, Status: string(it.Status)}
	}
	ps := make([]paymentJSON, len(o.Payments))
	for i, p := range o.Payments {
		ps[i] = paymentJSON{ID: p.ID, Method: p.Method, Amount: p.Amount, TransactionCode: p.TransactionCode, CreatedAt: p.CreatedAt}
	}
	if items, err = json.Marshal(is); err != nil {
		return nil, nil, fmt.Errorf("encode items: %w", err)
	}
	if payments, err = json.Marshal(ps); err != nil {
		return nil, nil, fmt.Errorf("encode payments: %w", err)
	}
	return items, payments, nil
}

const orderColumns = `id, hotel_id, customer_id, status, served_by, items, payments,
	total_items, total_price::text, total_bill::text, created_at, updated_at, revision`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                     Order
		status                string
		items, payments       []byte
		totalPrice, totalBill string
	)
	err := row.Scan(&o.ID, &o.HotelID, &o.CustomerID, &status, &o.ServedBy, &items, &payments,
		&o.TotalItems, &totalPrice, &totalBill, &o.CreatedAt, &o.UpdatedAt, &o.Revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = enum.OrderStatus(status)
	o.TotalPrice, _ = decimal.NewFromString(totalPrice)
	o.TotalBill, _ = decimal.NewFromString(totalBill)

	var is []itemJSON
	if err := json.Unmarshal(items, &is); err != nil {
		return Order{}, fmt.Errorf("decode items: %w", err)
	}
	var ps []paymentJSON
	if err := json.Unmarshal(payments, &ps); err != nil {
		return Order{}, fmt.Errorf("decode payments: %w", err)
	}
	o.Items = make([]OrderItem, len(is))
	for i, it := range is {
		o.Items[i] = OrderItem{ID: it.ID, Name: it.Name, ProductID: it.ProductID, Qty: it.Qty, Price: it.Price, Status: enum.ItemStatus(it.Status).OrDefault()}
	}
	o.Payments = make([]OrderPayment, len(ps))
	for i, p := range ps {
		o.Payments[i] = OrderPayment{ID: p.ID, Method: p.Method, Amount: p.Amount, TransactionCode: p.TransactionCode, CreatedAt: p.CreatedAt}
	}
	return o, nil
}

// --- Orders ---

func (s *PostgresStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	items, payments, err := encodeLines(o)
	if err != nil {
		return Order{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO orders (id, hotel_id, customer_id, status, served_by, items, payments,
			total_items, total_price, total_bill, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11, $12)`,
		o.ID, o.HotelID, o.CustomerID, string(o.Status), o.ServedBy, items, payments,
		o.TotalItems, o.TotalPrice.String(), o.TotalBill.String(), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (s *PostgresStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	dir := "DESC"
	if f.Sort == SortOldestFirst {
		dir = "ASC"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR hotel_id = $1) AND ($2 = '' OR customer_id = $2)
		ORDER BY created_at `+dir,
		f.HotelID, f.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ReplaceOrder(ctx context.Context, o Order) (Order, error) {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	items, payments, err := encodeLines(o)
	if err != nil {
		return Order{}, err
	}
	updated, err := scanOrder(s.pool.QueryRow(ctx, `
		UPDATE orders SET hotel_id = $2, customer_id = $3, status = $4, served_by = $5,
			items = $6, payments = $7, total_items = $8,
			total_price = $9::numeric, total_bill = $10::numeric, updated_at = $11,
			revision = revision + 1
		WHERE id = $1 AND revision = $12
		RETURNING `+orderColumns,
		o.ID, o.HotelID, o.CustomerID, string(o.Status), o.ServedBy, items, payments,
		o.TotalItems, o.TotalPrice.String(), o.TotalBill.String(), o.UpdatedAt, o.Revision))
	if !errors.Is(err, ErrNotFound) {
		return updated, err
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
		return Order{}, fmt.Errorf("check order: %w", err)
	}
	if exists {
		return Order{}, ErrConflict
	}
	return Order{}, ErrNotFound
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status enum.OrderStatus, at time.Time) (Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = $3, revision = revision + 1 WHERE id = $1
		RETURNING `+orderColumns,
		id, string(status), at))
}

func (s *PostgresStore) DeleteOrder(ctx context.Context, id string) (Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `DELETE FROM orders WHERE id = $1 RETURNING `+orderColumns, id))
}

func (s *PostgresStore) SumOrders(ctx context.Context, hotelID string, from, to time.Time) (SalesTotals, error) {
	var (
		totals SalesTotals
		price  string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_items), 0)::bigint, COALESCE(SUM(total_price), 0)::text
		FROM orders
		WHERE ($1 = '' OR hotel_id = $1) AND created_at >= $2 AND created_at <= $3`,
		hotelID, from, to).Scan(&totals.TotalItems, &price)
	if err != nil {
		return SalesTotals{}, fmt.Errorf("sum orders: %w", err)
	}
	totals.TotalPrice, err = decimal.NewFromString(price)
	if err != nil {
		return SalesTotals{}, fmt.Errorf("parse total price: %w", err)
	}
	return totals, nil
}

// --- Fees ---

// AccrueFee upserts the (hotel, day) row; the primary key turns concurrent
// first accruals into increments.
func (s *PostgresStore) AccrueFee(ctx context.Context, hotelID, day, orderID string, amount decimal.Decimal) (Fee, error) {
	return scanFee(s.pool.QueryRow(ctx, `
		INSERT INTO fees (hotel_id, day, total, number_of_orders, order_ids)
		VALUES ($1, $2, $3::numeric, 1, ARRAY[$4::text])
		ON CONFLICT (hotel_id, day) DO UPDATE SET
			total = fees.total + EXCLUDED.total,
			number_of_orders = fees.number_of_orders + 1,
			order_ids = array_append(fees.order_ids, $4::text)
		RETURNING hotel_id, day, total::text, number_of_orders, order_ids`,
		hotelID, day, amount.String(), orderID))
}

func (s *PostgresStore) GetFee(ctx context.Context, hotelID, day string) (Fee, error) {
	return scanFee(s.pool.QueryRow(ctx, `
		SELECT hotel_id, day, total::text, number_of_orders, order_ids
		FROM fees WHERE hotel_id = $1 AND day = $2`, hotelID, day))
}

func scanFee(row pgx.Row) (Fee, error) {
	var (
		f     Fee
		total string
	)
	if err := row.Scan(&f.HotelID, &f.Day, &total, &f.NumberOfOrders, &f.OrderIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fee{}, ErrNotFound
		}
		return Fee{}, fmt.Errorf("scan fee: %w", err)
	}
	var err error
	if f.Total, err = decimal.NewFromString(total); err != nil {
		return Fee{}, fmt.Errorf("parse fee total: %w", err)
	}
	return f, nil
}

// --- Directory ---

func (s *PostgresStore) GetHotel(ctx context.Context, id string) (Hotel, error) {
	var h Hotel
	err := s.pool.QueryRow(ctx, `SELECT id, business_name, fcm_token FROM hotels WHERE id = $1`, id).
		Scan(&h.ID, &h.BusinessName, &h.FCMToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return Hotel{}, ErrNotFound
	}
	if err != nil {
		return Hotel{}, fmt.Errorf("get hotel: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) GetHotels(ctx context.Context, ids []string) (map[string]Hotel, error) {
	out := make(map[string]Hotel, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, business_name, fcm_token FROM hotels WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get hotels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h Hotel
		if err := rows.Scan(&h.ID, &h.BusinessName, &h.FCMToken); err != nil {
			return nil, fmt.Errorf("scan hotel: %w", err)
		}
		out[h.ID] = h
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `SELECT id, full_name, fcm_token FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.FullName, &c.FCMToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpsertHotel(ctx context.Context, h Hotel) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hotels (id, business_name, fcm_token) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET business_name = EXCLUDED.business_name, fcm_token = EXCLUDED.fcm_token`,
		h.ID, h.BusinessName, h.FCMToken)
	if err != nil {
		return fmt.Errorf("upsert hotel: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertCustomer(ctx context.Context, c Customer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, full_name, fcm_token) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, fcm_token = EXCLUDED.fcm_token`,
		c.ID, c.FullName, c.FCMToken)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
