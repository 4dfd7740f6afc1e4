package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// TrackedProduct is a product whose page is polled for its current price.
type TrackedProduct struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	URL         string          `json:"url" db:"url"`
	TargetPrice decimal.Decimal `json:"target_price" db:"target_price"`
}

// PriceObservation is one immutable price sample for a product.
// Seq is assigned by the store at insert time and orders a product's history.
type PriceObservation struct {
	Seq        int64           `json:"seq" db:"sequence_id"`
	ProductID  string          `json:"product_id" db:"product_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	ObservedAt time.Time       `json:"observed_at" db:"timestamp"`
}

// HistoryFilter controls which observations are returned from the store.
type HistoryFilter struct {
	ProductID string    `json:"product_id,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// ProductStatus pairs a product with its most recent observation, if any.
type ProductStatus struct {
	TrackedProduct
	Latest *PriceObservation `json:"latest,omitempty"`
}

var (
	errNegativePrice      = errors.New("price must not be negative")
	errMisplacedSeparator = errors.New("comma is not a thousands separator")

	thousandsGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParsePrice parses a rendered or machine-readable price. Leading currency
// symbols and surrounding whitespace are ignored. Commas are accepted only
// as thousands separators in groups of three, so "1,299.99" parses while a
// decimal comma such as "1,50" is rejected.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimLeftFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Sc, r)
	})
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, errMisplacedSeparator)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("parse price %q: empty value", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, errNegativePrice)
	}
	return d, nil
}

// FormatPrice renders a price with two decimal places and a dollar sign.
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
