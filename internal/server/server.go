package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
)

const requestTimeout = 10 * time.Second

// Server provides health check and read-only price API endpoints.
type Server struct {
	storage storage.Storage
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server.
func NewServer(store storage.Storage, logger *slog.Logger) *Server {
	s := &Server{
		storage: store,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/products", s.handleProducts)
	s.mux.HandleFunc("GET /api/v1/products/{id}", s.handleProduct)
	s.mux.HandleFunc("GET /api/v1/products/{id}/history", s.handleHistory)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := s.storage.ListProducts(ctx)
	if err != nil {
		s.logger.Error("list products", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	statuses := make([]model.ProductStatus, 0, len(products))
	for _, p := range products {
		latest, err := s.storage.LatestObservation(ctx, p.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("latest observation", "product_id", p.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		statuses = append(statuses, model.ProductStatus{TrackedProduct: p, Latest: latest})
	}

	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := r.PathValue("id")
	product, err := s.storage.GetProduct(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get product", "product_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	latest, err := s.storage.LatestObservation(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("latest observation", "product_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, model.ProductStatus{TrackedProduct: *product, Latest: latest})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filter := model.HistoryFilter{ProductID: r.PathValue("id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since, want RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	_, err := s.storage.GetProduct(ctx, filter.ProductID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get product", "product_id", filter.ProductID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	history, err := s.storage.History(ctx, filter)
	if err != nil {
		s.logger.Error("query history", "product_id", filter.ProductID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []model.PriceObservation{}
	}

	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
