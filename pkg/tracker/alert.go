package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/price-tracker/pkg/alerts"
	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

// AlertManager decides whether an observation warrants an alert and
// dispatches it to every configured notifier.
type AlertManager struct {
	notifiers []alerts.Notifier
	logger    *slog.Logger
}

// NewAlertManager creates an alert manager.
func NewAlertManager(notifiers []alerts.Notifier, logger *slog.Logger) *AlertManager {
	return &AlertManager{
		notifiers: notifiers,
		logger:    logger,
	}
}

// ShouldAlert reports whether price has reached target. The boundary is inclusive.
func ShouldAlert(price, target decimal.Decimal) bool {
	return price.LessThanOrEqual(target)
}

// MaybeAlert notifies when price is at or below the product's target.
// Delivery failures are logged and never returned.
func (m *AlertManager) MaybeAlert(ctx context.Context, product model.TrackedProduct, price decimal.Decimal, observedAt time.Time) {
	if !ShouldAlert(price, product.TargetPrice) {
		return
	}

	alert := alerts.Alert{
		ProductID:   product.ID,
		ProductName: product.Name,
		URL:         product.URL,
		Price:       price,
		TargetPrice: product.TargetPrice,
		ObservedAt:  observedAt,
		Message: fmt.Sprintf("%s dropped to %s (target was %s)",
			product.Name, model.FormatPrice(price), model.FormatPrice(product.TargetPrice)),
	}

	for _, notifier := range m.notifiers {
		m.send(ctx, notifier, alert)
	}
}

func (m *AlertManager) send(ctx context.Context, notifier alerts.Notifier, alert alerts.Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("alert notifier panicked",
				"notifier", notifier.Name(),
				"product_id", alert.ProductID,
				"panic", r,
			)
		}
	}()

	if err := notifier.Send(ctx, alert); err != nil {
		m.logger.Error("send alert failed",
			"notifier", notifier.Name(),
			"product_id", alert.ProductID,
			"error", err,
		)
	}
}
