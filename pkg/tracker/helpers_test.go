package tracker_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/price-tracker/pkg/alerts"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// captureNotifier records every alert it receives.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
	err    error
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Send(_ context.Context, alert alerts.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return c.err
}

func (c *captureNotifier) sent() []alerts.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]alerts.Alert(nil), c.alerts...)
}

type panicNotifier struct{}

func (panicNotifier) Name() string { return "panic" }

func (panicNotifier) Send(context.Context, alerts.Alert) error { panic("boom") }

// fakeFetcher serves canned bodies or errors per URL.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{bodies: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) set(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	body, ok := f.bodies[url]
	if !ok {
		return "", fmt.Errorf("unexpected url %s", url)
	}
	return body, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pricePage(price string) string {
	return fmt.Sprintf(`<html><body><div class="price-box"><span class="current-price" data-price="%s">$%s</span></div></body></html>`, price, price)
}

// mockShop mimics the product-page server: a settable price per product and
// 404 for anything unknown.
type mockShop struct {
	mu     sync.Mutex
	prices map[string]string
}

func newMockShop(t *testing.T) (*mockShop, *httptest.Server) {
	t.Helper()
	shop := &mockShop{prices: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /product/{id}", func(w http.ResponseWriter, r *http.Request) {
		shop.mu.Lock()
		price, ok := shop.prices[r.PathValue("id")]
		shop.mu.Unlock()
		if !ok {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, pricePage(price))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return shop, server
}

func (s *mockShop) setPrice(id, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[id] = price
}
