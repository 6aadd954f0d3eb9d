package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/orders"
)

// Schema DDL for the local record store.
const (
	createOrders = `CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    name TEXT
);`

	createPurchases = `CREATE TABLE IF NOT EXISTS purchases (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL REFERENCES orders(id),
    position INTEGER NOT NULL DEFAULT 0,
    customer TEXT,
    quantity NUMERIC,
    price NUMERIC,
    pickup_point TEXT,
    note TEXT,
    picked_up INTEGER NOT NULL DEFAULT 0,
    picked_up_at TEXT,
    collected INTEGER NOT NULL DEFAULT 0,
    collected_at TEXT
);`

	createLinks = `CREATE TABLE IF NOT EXISTS purchase_links (
    purchase_id TEXT NOT NULL REFERENCES purchases(id),
    position INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL
);`

	createImages = `CREATE TABLE IF NOT EXISTS purchase_images (
    purchase_id TEXT NOT NULL REFERENCES purchases(id),
    position INTEGER NOT NULL DEFAULT 0,
    path TEXT NOT NULL
);`
)

var schema = []string{createOrders, createPurchases, createLinks, createImages}

// SQLite reads orders from a local database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and creates missing tables.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Order(ctx context.Context, key string) (*orders.Order, error) {
	order := &orders.Order{}
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM orders WHERE id = ?`, key).Scan(&order.ID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.Newf(failure.RecordNotFound, "fetch order", "order %s not found", key)
	}
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch order", err)
	}
	order.Name = nullable(name)

	purchases, err := s.purchases(ctx, key)
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch purchases", err)
	}
	order.Purchases = purchases
	return order, nil
}

func (s *SQLite) purchases(ctx context.Context, orderID string) ([]orders.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, customer, quantity, price, pickup_point, note,
       picked_up, picked_up_at, collected, collected_at
FROM purchases WHERE order_id = ? ORDER BY position, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []orders.Purchase
	for rows.Next() {
		var (
			p                                               orders.Purchase
			customer, pickup, note, pickedUpAt, collectedAt sql.NullString
		)
		if err := rows.Scan(&p.ID, &customer, &p.Quantity, &p.Price, &pickup, &note,
			&p.PickedUp, &pickedUpAt, &p.Collected, &collectedAt); err != nil {
			return nil, err
		}
		p.Customer = nullable(customer)
		p.PickupPoint = nullable(pickup)
		p.Note = nullable(note)
		p.PickedUpAt = nullable(pickedUpAt)
		p.CollectedAt = nullable(collectedAt)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range purchases {
		if purchases[i].Links, err = s.strings(ctx, `SELECT url FROM purchase_links WHERE purchase_id = ? ORDER BY position`, purchases[i].ID); err != nil {
			return nil, err
		}
		if purchases[i].Images, err = s.strings(ctx, `SELECT path FROM purchase_images WHERE purchase_id = ? ORDER BY position`, purchases[i].ID); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (s *SQLite) strings(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// SaveOrder replaces the stored copy of order, including its purchases,
// links and images, in one transaction.
func (s *SQLite) SaveOrder(ctx context.Context, order *orders.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM purchase_links WHERE purchase_id IN (SELECT id FROM purchases WHERE order_id = ?)`, []any{order.ID}},
		{`DELETE FROM purchase_images WHERE purchase_id IN (SELECT id FROM purchases WHERE order_id = ?)`, []any{order.ID}},
		{`DELETE FROM purchases WHERE order_id = ?`, []any{order.ID}},
		{`INSERT INTO orders (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name`, []any{order.ID, order.Name}},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("failed to save order %s: %w", order.ID, err)
		}
	}

	for pos, p := range order.Purchases {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO purchases (id, order_id, position, customer, quantity, price, pickup_point, note,
                       picked_up, picked_up_at, collected, collected_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, order.ID, pos, p.Customer, sqlValue(p.Quantity), sqlValue(p.Price), p.PickupPoint, p.Note,
			p.PickedUp, p.PickedUpAt, p.Collected, p.CollectedAt); err != nil {
			return fmt.Errorf("failed to save purchase %s: %w", p.ID, err)
		}
		for i, link := range p.Links {
			if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_links (purchase_id, position, url) VALUES (?, ?, ?)`, p.ID, i, link); err != nil {
				return fmt.Errorf("failed to save link of purchase %s: %w", p.ID, err)
			}
		}
		for i, path := range p.Images {
			if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_images (purchase_id, position, path) VALUES (?, ?, ?)`, p.ID, i, path); err != nil {
				return fmt.Errorf("failed to save image of purchase %s: %w", p.ID, err)
			}
		}
	}

	return tx.Commit()
}

// sqlValue maps pass-through numeric fields onto driver values.
func sqlValue(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case json.Number:
		return n.String()
	case int, int64, float64, string:
		return n
	default:
		return fmt.Sprint(n)
	}
}
