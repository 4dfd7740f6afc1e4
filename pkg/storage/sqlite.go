package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path and
// ensures its schema.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes every call; each one acquires it and
	// hands it back before returning.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Init(ctx context.Context) error {
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertProduct(ctx context.Context, product *model.TrackedProduct) error {
	if strings.TrimSpace(product.ID) == "" {
		return ErrEmptyID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, url, target_price, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   url = excluded.url,
		   target_price = excluded.target_price,
		   updated_at = excluded.updated_at`,
		product.ID, product.Name, product.URL, product.TargetPrice.String(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", product.ID, err)
	}
	return nil
}

func (s *SQLite) GetProduct(ctx context.Context, id string) (*model.TrackedProduct, error) {
	var p model.TrackedProduct
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, target_price FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.URL, &p.TargetPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %q: %w", id, err)
	}
	return &p, nil
}

func (s *SQLite) ListProducts(ctx context.Context) ([]model.TrackedProduct, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, target_price FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.TrackedProduct
	for rows.Next() {
		var p model.TrackedProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.TargetPrice); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *SQLite) RecordObservation(ctx context.Context, obs *model.PriceObservation) error {
	if obs.Price.IsNegative() {
		return fmt.Errorf("record observation for %q: negative price %s", obs.ProductID, obs.Price)
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now()
	}
	obs.ObservedAt = obs.ObservedAt.UTC()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (product_id, price, timestamp) VALUES (?, ?, ?)`,
		obs.ProductID, obs.Price.String(), obs.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("insert observation for %q: %w", obs.ProductID, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read sequence id: %w", err)
	}
	obs.Seq = seq
	return nil
}

func (s *SQLite) History(ctx context.Context, filter model.HistoryFilter) ([]model.PriceObservation, error) {
	query := "SELECT sequence_id, product_id, price, timestamp FROM price_history"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}

	newestFirst := filter.Limit > 0
	if newestFirst {
		query += " ORDER BY sequence_id DESC LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " ORDER BY sequence_id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []model.PriceObservation
	for rows.Next() {
		var o model.PriceObservation
		if err := rows.Scan(&o.Seq, &o.ProductID, &o.Price, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// A limited query keeps the newest rows; hand them back oldest first.
	if newestFirst {
		slices.Reverse(history)
	}
	return history, nil
}

func (s *SQLite) LatestObservation(ctx context.Context, productID string) (*model.PriceObservation, error) {
	var o model.PriceObservation
	err := s.db.QueryRowContext(ctx,
		`SELECT sequence_id, product_id, price, timestamp FROM price_history
		 WHERE product_id = ? ORDER BY sequence_id DESC LIMIT 1`, productID,
	).Scan(&o.Seq, &o.ProductID, &o.Price, &o.ObservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest observation for %q: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest observation for %q: %w", productID, err)
	}
	return &o, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from a HistoryFilter.
func buildWhereClause(filter model.HistoryFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC())
	}

	return strings.Join(conditions, " AND "), args
}

var _ Storage = (*SQLite)(nil)
