package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrEmptyID is returned when a product is written without an id.
	ErrEmptyID = errors.New("product id must not be empty")
)

// Storage defines the persistence layer for tracked products and their price history.
// Every method is atomic on its own and durable once it returns.
type Storage interface {
	// Init ensures the schema exists. Safe to call on every startup.
	Init(ctx context.Context) error

	// UpsertProduct inserts a product or fully replaces the one with the same id.
	UpsertProduct(ctx context.Context, product *model.TrackedProduct) error

	// GetProduct retrieves a product by id. Returns ErrNotFound if absent.
	GetProduct(ctx context.Context, id string) (*model.TrackedProduct, error)

	// ListProducts returns all tracked products ordered by id.
	ListProducts(ctx context.Context) ([]model.TrackedProduct, error)

	// RecordObservation appends one price observation and assigns its sequence number.
	RecordObservation(ctx context.Context, obs *model.PriceObservation) error

	// History returns observations matching the filter in insertion order.
	History(ctx context.Context, filter model.HistoryFilter) ([]model.PriceObservation, error)

	// LatestObservation returns the most recently inserted observation for a product.
	LatestObservation(ctx context.Context, productID string) (*model.PriceObservation, error)

	// Close releases resources.
	Close() error
}
