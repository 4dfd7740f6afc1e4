package tracker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/price-tracker/pkg/alerts"
	"github.com/ogulcanaydogan/price-tracker/pkg/extractor"
	"github.com/ogulcanaydogan/price-tracker/pkg/fetcher"
	"github.com/ogulcanaydogan/price-tracker/pkg/model"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
	"github.com/ogulcanaydogan/price-tracker/pkg/tracker"
)

func newTestTracker(t *testing.T, store storage.Storage, f fetcher.Fetcher, opts tracker.Options) (*tracker.Tracker, *captureNotifier) {
	t.Helper()
	capture := &captureNotifier{}
	logger := newTestLogger()
	mgr := tracker.NewAlertManager([]alerts.Notifier{capture}, logger)
	return tracker.NewTracker(store, f, extractor.NewHTML(), mgr, logger, opts), capture
}

func TestTracker_EndToEnd_TwoCycles(t *testing.T) {
	shop, server := newMockShop(t)
	store := newTestStore(t)
	ctx := context.Background()

	tr, capture := newTestTracker(t, store, fetcher.NewHTTP(fetcher.Options{Timeout: time.Second}), tracker.Options{})
	require.NoError(t, tr.Track(ctx, &model.TrackedProduct{
		ID: "P1", Name: "Wireless Headphones", URL: server.URL + "/product/P1", TargetPrice: dec("100.00"),
	}))

	// Cycle 1: above target.
	shop.setPrice("P1", "130.00")
	report := tr.RunCycle(ctx)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, report.Alerts)
	assert.Empty(t, capture.sent())

	history, err := store.History(ctx, model.HistoryFilter{ProductID: "P1"})
	require.NoError(t, err)
	require.Len(t, history, 1)

	// Cycle 2: dropped below target.
	shop.setPrice("P1", "99.99")
	report = tr.RunCycle(ctx)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Alerts)

	sent := capture.sent()
	require.Len(t, sent, 1)
	assert.True(t, dec("99.99").Equal(sent[0].Price))

	history, err = store.History(ctx, model.HistoryFilter{ProductID: "P1"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, dec("130.00").Equal(history[0].Price))
	assert.True(t, dec("99.99").Equal(history[1].Price))
}

func TestTracker_FaultInjection_TimeoutIsolated(t *testing.T) {
	shop, server := newMockShop(t)
	shop.setPrice("P1", "120.00")

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "P1", Name: "Headphones", URL: server.URL + "/product/P1", TargetPrice: dec("100")}))
	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "P2", Name: "Keyboard", URL: slow.URL + "/product/P2", TargetPrice: dec("75")}))

	tr, _ := newTestTracker(t, store, fetcher.NewHTTP(fetcher.Options{Timeout: 100 * time.Millisecond}), tracker.Options{})

	report := tr.RunCycle(ctx)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	p1, err := store.History(ctx, model.HistoryFilter{ProductID: "P1"})
	require.NoError(t, err)
	assert.Len(t, p1, 1)

	p2, err := store.History(ctx, model.HistoryFilter{ProductID: "P2"})
	require.NoError(t, err)
	assert.Empty(t, p2)

	// The next cycle runs normally.
	report = tr.RunCycle(ctx)
	assert.Equal(t, 1, report.Checked)
	p1, err = store.History(ctx, model.HistoryFilter{ProductID: "P1"})
	require.NoError(t, err)
	assert.Len(t, p1, 2)
}

func TestTracker_Check_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := newFakeFetcher()
	tr, _ := newTestTracker(t, store, f, tracker.Options{})

	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "404", URL: "http://shop/404", TargetPrice: dec("1")}))
	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "bad", URL: "http://shop/bad", TargetPrice: dec("1")}))
	f.fail("http://shop/404", &fetcher.FetchError{URL: "http://shop/404", StatusCode: http.StatusNotFound})
	f.set("http://shop/bad", "<html><body>no price here</body></html>")

	_, err := tr.Check(ctx, "missing")
	assert.ErrorIs(t, err, tracker.ErrProductNotFound)

	_, err = tr.Check(ctx, "404")
	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	_, err = tr.Check(ctx, "bad")
	assert.ErrorIs(t, err, extractor.ErrNoPriceElement)

	history, err := store.History(ctx, model.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTracker_Check_Outcome(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := newFakeFetcher()
	observed := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	tr, capture := newTestTracker(t, store, f, tracker.Options{Now: func() time.Time { return observed }})

	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "2", Name: "Mechanical Keyboard", URL: "http://shop/2", TargetPrice: dec("75.00")}))
	f.set("http://shop/2", pricePage("72.49"))

	outcome, err := tr.Check(ctx, "2")
	require.NoError(t, err)
	assert.True(t, outcome.Alerted)
	assert.Equal(t, "Mechanical Keyboard", outcome.Product.Name)
	assert.True(t, dec("72.49").Equal(outcome.Observation.Price))
	assert.True(t, observed.Equal(outcome.Observation.ObservedAt))
	assert.Positive(t, outcome.Observation.Seq)
	assert.Len(t, capture.sent(), 1)
}

func TestTracker_RunCycle_SkipsAndContinues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := newFakeFetcher()

	for _, p := range []model.TrackedProduct{
		{ID: "a", Name: "A", URL: "http://shop/a", TargetPrice: dec("10")},
		{ID: "b", Name: "B", URL: "http://shop/b", TargetPrice: dec("10")},
		{ID: "c", Name: "C", URL: "http://shop/c", TargetPrice: dec("10")},
		{ID: "d", Name: "D", URL: "http://shop/d", TargetPrice: dec("10")},
	} {
		require.NoError(t, store.UpsertProduct(ctx, &p))
	}
	f.set("http://shop/a", pricePage("12.00"))
	f.fail("http://shop/b", &fetcher.FetchError{URL: "http://shop/b", Err: context.DeadlineExceeded})
	f.set("http://shop/c", `<span class="current-price">call us</span>`)
	f.set("http://shop/d", pricePage("9.00"))

	// "ghost" is in the watch list but was never tracked.
	tr, capture := newTestTracker(t, store, f, tracker.Options{ProductIDs: []string{"a", "b", "ghost", "c", "d"}})

	report := tr.RunCycle(ctx)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Alerts)
	require.Len(t, capture.sent(), 1)
	assert.Equal(t, "d", capture.sent()[0].ProductID)

	f.mu.Lock()
	assert.Equal(t, []string{"http://shop/a", "http://shop/b", "http://shop/c", "http://shop/d"}, f.calls)
	f.mu.Unlock()
}

func TestTracker_RunCycle_StoreOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := newFakeFetcher()

	for _, id := range []string{"3", "1", "2"} {
		url := "http://shop/" + id
		require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: id, URL: url, TargetPrice: dec("1")}))
		f.set(url, pricePage("5"))
	}
	tr, _ := newTestTracker(t, store, f, tracker.Options{})

	tr.RunCycle(ctx)
	tr.RunCycle(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	want := []string{"http://shop/1", "http://shop/2", "http://shop/3"}
	assert.Equal(t, append(append([]string{}, want...), want...), f.calls)
}

// failingStore wraps a real store and breaks observation writes.
type failingStore struct {
	storage.Storage
}

func (failingStore) RecordObservation(context.Context, *model.PriceObservation) error {
	return errors.New("disk I/O error")
}

func TestTracker_RunCycle_StorageFailureSurfaced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	f := newFakeFetcher()
	require.NoError(t, store.UpsertProduct(ctx, &model.TrackedProduct{ID: "1", URL: "http://shop/1", TargetPrice: dec("100")}))
	f.set("http://shop/1", pricePage("50"))

	tr, capture := newTestTracker(t, failingStore{store}, f, tracker.Options{})

	_, err := tr.Check(ctx, "1")
	assert.ErrorContains(t, err, "disk I/O error")

	report := tr.RunCycle(ctx)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Checked)
	assert.Empty(t, capture.sent())
}

func TestTracker_RunCycle_Cancelled(t *testing.T) {
	store := newTestStore(t)
	f := newFakeFetcher()
	require.NoError(t, store.UpsertProduct(context.Background(), &model.TrackedProduct{ID: "1", URL: "http://shop/1"}))
	f.set("http://shop/1", pricePage("1"))
	tr, _ := newTestTracker(t, store, f, tracker.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := tr.RunCycle(ctx)
	assert.Equal(t, 0, report.Checked)
	assert.Equal(t, 0, f.callCount())
}

func TestTracker_RunWithTicks(t *testing.T) {
	store := newTestStore(t)
	f := newFakeFetcher()
	require.NoError(t, store.UpsertProduct(context.Background(), &model.TrackedProduct{ID: "1", URL: "http://shop/1", TargetPrice: dec("1")}))
	f.set("http://shop/1", pricePage("2"))
	tr, _ := newTestTracker(t, store, f, tracker.Options{})

	ticks := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var done atomic.Bool
	finished := make(chan struct{})
	go func() {
		tr.RunWithTicks(ctx, ticks)
		done.Store(true)
		close(finished)
	}()

	// One immediate cycle, then one per tick.
	ticks <- time.Now()
	ticks <- time.Now()
	close(ticks)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop after tick source closed")
	}
	assert.True(t, done.Load())
	assert.Equal(t, 3, f.callCount())

	history, err := store.History(context.Background(), model.HistoryFilter{ProductID: "1"})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestTracker_Run_StopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	f := newFakeFetcher()
	tr, _ := newTestTracker(t, store, f, tracker.Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop after cancel")
	}
}
