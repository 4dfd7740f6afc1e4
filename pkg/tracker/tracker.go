package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/price-tracker/pkg/extractor"
	"github.com/ogulcanaydogan/price-tracker/pkg/fetcher"
	"github.com/ogulcanaydogan/price-tracker/pkg/model"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 10 * time.Second

// ErrProductNotFound is returned by Check for ids missing from the store.
var ErrProductNotFound = errors.New("product not tracked")

// Options configures a Tracker.
type Options struct {
	// ProductIDs fixes the ids checked each cycle. Empty means every stored product.
	ProductIDs []string
	Interval   time.Duration
	// Now overrides the observation clock.
	Now func() time.Time
}

// Outcome describes one successful product check.
type Outcome struct {
	Product     model.TrackedProduct
	Observation model.PriceObservation
	Alerted     bool
}

// CycleReport summarizes one pass over the tracked products.
type CycleReport struct {
	ID       string
	Checked  int
	Alerts   int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Tracker polls product pages, records prices and raises alerts. It keeps
// no state of its own: every cycle re-reads what to track from the store.
type Tracker struct {
	storage    storage.Storage
	fetcher    fetcher.Fetcher
	extractor  extractor.Extractor
	alerts     *AlertManager
	logger     *slog.Logger
	productIDs []string
	interval   time.Duration
	now        func() time.Time
}

// NewTracker creates a tracker with the given dependencies.
func NewTracker(store storage.Storage, f fetcher.Fetcher, ex extractor.Extractor, alertMgr *AlertManager, logger *slog.Logger, opts Options) *Tracker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		storage:    store,
		fetcher:    f,
		extractor:  ex,
		alerts:     alertMgr,
		logger:     logger,
		productIDs: opts.ProductIDs,
		interval:   opts.Interval,
		now:        opts.Now,
	}
}

// Track registers a product or replaces the one with the same id.
func (t *Tracker) Track(ctx context.Context, product *model.TrackedProduct) error {
	if err := t.storage.UpsertProduct(ctx, product); err != nil {
		return fmt.Errorf("track product: %w", err)
	}
	t.logger.Info("product tracked",
		"product_id", product.ID,
		"product", product.Name,
		"url", product.URL,
		"target", product.TargetPrice.StringFixed(2),
	)
	return nil
}

// Check fetches, extracts and records the current price of one product,
// then hands the result to the alert manager.
func (t *Tracker) Check(ctx context.Context, id string) (*Outcome, error) {
	product, err := t.storage.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	body, err := t.fetcher.Fetch(ctx, product.URL)
	if err != nil {
		return nil, err
	}

	price, err := t.extractor.Extract(body)
	if err != nil {
		return nil, err
	}

	obs := model.PriceObservation{
		ProductID:  product.ID,
		Price:      price,
		ObservedAt: t.now().UTC(),
	}
	if err := t.storage.RecordObservation(ctx, &obs); err != nil {
		return nil, err
	}

	t.logger.Info("price checked",
		"product_id", product.ID,
		"product", product.Name,
		"price", price.StringFixed(2),
		"target", product.TargetPrice.StringFixed(2),
		"seq", obs.Seq,
	)

	alerted := ShouldAlert(price, product.TargetPrice)
	if t.alerts != nil {
		t.alerts.MaybeAlert(ctx, *product, price, obs.ObservedAt)
	}

	return &Outcome{Product: *product, Observation: obs, Alerted: alerted}, nil
}

// RunCycle checks every tracked product once, in a fixed order. A failure
// for one product never stops the others.
func (t *Tracker) RunCycle(ctx context.Context) CycleReport {
	start := time.Now()
	report := CycleReport{ID: uuid.New().String()}
	logger := t.logger.With("cycle_id", report.ID)

	ids, err := t.cycleIDs(ctx)
	if err != nil {
		logger.Error("list tracked products", "error", err)
		report.Failed++
		report.Duration = time.Since(start)
		return report
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			logger.Info("cycle interrupted", "remaining", len(ids)-report.Checked-report.Skipped-report.Failed)
			break
		}

		outcome, err := t.checkIsolated(ctx, id)
		switch {
		case err == nil:
			report.Checked++
			if outcome.Alerted {
				report.Alerts++
			}
		case isSkippable(err):
			report.Skipped++
			logger.Warn("price check skipped", "product_id", id, "reason", skipReason(err), "error", err)
		default:
			report.Failed++
			logger.Error("price check failed", "product_id", id, "error", err)
		}
	}

	report.Duration = time.Since(start)
	logger.Info("cycle complete",
		"checked", report.Checked,
		"alerts", report.Alerts,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report
}

// Run starts a cycle immediately and then one per interval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("tracker started", "interval", t.interval)
	t.RunWithTicks(ctx, ticker.C)
}

// RunWithTicks starts a cycle immediately and then one per received tick,
// returning once ctx is cancelled or ticks is closed.
func (t *Tracker) RunWithTicks(ctx context.Context, ticks <-chan time.Time) {
	t.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopping", "reason", ctx.Err())
			return
		case _, ok := <-ticks:
			if !ok {
				t.logger.Info("tracker stopping", "reason", "tick source closed")
				return
			}
			t.RunCycle(ctx)
		}
	}
}

func (t *Tracker) cycleIDs(ctx context.Context) ([]string, error) {
	if len(t.productIDs) > 0 {
		return t.productIDs, nil
	}

	products, err := t.storage.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// checkIsolated runs Check and turns a panic into an error so one bad
// product cannot take the loop down.
func (t *Tracker) checkIsolated(ctx context.Context, id string) (outcome *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = nil, fmt.Errorf("check %q panicked: %v", id, r)
		}
	}()
	return t.Check(ctx, id)
}

func isSkippable(err error) bool {
	return skipReason(err) != ""
}

func skipReason(err error) string {
	var fetchErr *fetcher.FetchError
	var exErr *extractor.ExtractionError
	switch {
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	case errors.As(err, &fetchErr):
		if fetchErr.Timeout() {
			return "fetch_timeout"
		}
		return "fetch_failed"
	case errors.As(err, &exErr):
		return "extraction_failed"
	default:
		return ""
	}
}
