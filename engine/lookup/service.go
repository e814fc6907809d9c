// Package lookup runs the two citycast workflows: ingesting current weather
// for a set of cities into the vector index, and answering free-text
// questions by nearest-neighbour search over the city names.
package lookup

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/engine/semantic"
	"github.com/WessleyAI/citycast/pkg/metrics"
)

// NATS subjects.
const (
	IngestedSubject = "citycast.weather.ingested"
	QuerySubject    = "citycast.query"
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// WeatherSource returns current conditions, or nil when none are available.
type WeatherSource interface {
	Current(ctx context.Context, at domain.Coordinates) (*domain.Weather, error)
}

// Index is the vector store.
type Index interface {
	Upsert(ctx context.Context, records []semantic.Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]semantic.Match, error)
}

// Publisher emits ingest events.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Deps are the collaborators of a Service. Publisher, Metrics and Logger are
// optional.
type Deps struct {
	Embedder  Embedder
	Weather   WeatherSource
	Index     Index
	Publisher Publisher
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// Service is built once per process and shared by the CLI, HTTP and NATS
// front ends.
type Service struct {
	embedder  Embedder
	weather   WeatherSource
	index     Index
	publisher Publisher
	logger    *slog.Logger
	m         serviceMetrics
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Service{
		embedder:  d.Embedder,
		weather:   d.Weather,
		index:     d.Index,
		publisher: d.Publisher,
		logger:    d.Logger,
		m:         newServiceMetrics(d.Metrics),
	}
}

type serviceMetrics struct {
	ingested      *metrics.Counter
	skipped       *metrics.Counter
	queries       map[Outcome]*metrics.Counter
	embedDuration *metrics.Histogram
	queryDuration *metrics.Histogram
}

func newServiceMetrics(r *metrics.Registry) serviceMetrics {
	const ingestHelp = "Cities processed by ingestion, by result."
	const queryHelp = "Queries answered, by outcome."
	m := serviceMetrics{
		ingested:      r.Counter(metrics.WithLabels("citycast_ingest_cities_total", "result", "ingested"), ingestHelp),
		skipped:       r.Counter(metrics.WithLabels("citycast_ingest_cities_total", "result", "skipped"), ingestHelp),
		queries:       make(map[Outcome]*metrics.Counter, 3),
		embedDuration: r.Histogram("citycast_embed_duration_seconds", "Embedding call latency.", nil),
		queryDuration: r.Histogram("citycast_query_duration_seconds", "End-to-end query latency.", nil),
	}
	for _, o := range []Outcome{OutcomeAnswered, OutcomeLowConfidence, OutcomeNotFound} {
		m.queries[o] = r.Counter(metrics.WithLabels("citycast_query_total", "outcome", string(o)), queryHelp)
	}
	return m
}
