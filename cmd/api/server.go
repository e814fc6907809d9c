package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/engine/lookup"
	"github.com/WessleyAI/citycast/pkg/metrics"
	"github.com/WessleyAI/citycast/pkg/mid"
)

// lookupService is the part of lookup.Service the API uses.
type lookupService interface {
	Lookup(ctx context.Context, prompt string) (lookup.Result, error)
	Ingest(ctx context.Context, cities []domain.City) (map[string]domain.Weather, error)
}

type recordCounter interface {
	Count(ctx context.Context) (int, error)
}

type server struct {
	svc     lookupService
	index   recordCounter
	cities  []domain.City
	metrics *metrics.Registry
	logger  *slog.Logger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/query", s.handleQuery)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// QueryRequest is the NATS request body on lookup.QuerySubject.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is returned by GET /api/query and the NATS responder.
type QueryResponse struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Outcome string   `json:"outcome"`
	City    string   `json:"city,omitempty"`
	Score   *float32 `json:"score,omitempty"`
}

func toResponse(res lookup.Result) QueryResponse {
	out := QueryResponse{Query: res.Query, Answer: res.Answer, Outcome: string(res.Outcome)}
	if res.Match != nil {
		score := res.Match.Score
		out.City = res.Match.ID
		out.Score = &score
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.Count(r.Context())
	if err != nil {
		s.logger.Warn("health: count failed", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "records": n})
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := domain.ValidateQuery(q); err != nil {
		mid.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}
	res, err := s.svc.Lookup(r.Context(), q)
	if err != nil {
		s.logger.Error("query failed", "err", err)
		mid.WriteError(w, http.StatusBadGateway, "lookup failed")
		return
	}
	writeJSON(w, toResponse(res))
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	got, err := s.svc.Ingest(r.Context(), s.cities)
	if err != nil {
		s.logger.Error("ingest failed", "err", err)
		mid.WriteError(w, http.StatusBadGateway, "ingest failed")
		return
	}
	writeJSON(w, got)
}

// respond serves lookup.QuerySubject requests.
func (s *server) respond(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	if err := domain.ValidateQuery(req.Query); err != nil {
		return QueryResponse{}, err
	}
	res, err := s.svc.Lookup(ctx, req.Query)
	if err != nil {
		return QueryResponse{}, err
	}
	return toResponse(res), nil
}
