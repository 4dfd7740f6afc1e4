package alerts

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts as a distinct, clearly marked log line.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(ctx context.Context, alert Alert) error {
	l.logger.WarnContext(ctx, "PRICE ALERT",
		"product_id", alert.ProductID,
		"product", alert.ProductName,
		"price", alert.Price.StringFixed(2),
		"target", alert.TargetPrice.StringFixed(2),
		"message", alert.Message,
	)
	return nil
}
