package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Alert is raised when an observed price reaches a product's target.
type Alert struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	URL         string          `json:"url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	TargetPrice decimal.Decimal `json:"target_price"`
	ObservedAt  time.Time       `json:"observed_at"`
	Message     string          `json:"message"`
}

// BelowTarget returns how far the observed price sits under the target.
func (a Alert) BelowTarget() decimal.Decimal {
	return a.TargetPrice.Sub(a.Price)
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
