package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/engine/semantic"
	"github.com/WessleyAI/citycast/pkg/fn"
)

// Ingest embeds every city name in one batch, then fetches and stores the
// current weather city by city. Cities without weather are skipped. The first
// fetch or store error aborts the run, leaving earlier cities stored.
func (s *Service) Ingest(ctx context.Context, cities []domain.City) (map[string]domain.Weather, error) {
	out := make(map[string]domain.Weather, len(cities))
	if len(cities) == 0 {
		return out, nil
	}
	if err := domain.ValidateCities(cities); err != nil {
		return nil, fmt.Errorf("lookup: ingest: %w", err)
	}

	embed := fn.TracedStage("lookup.embed_cities", fn.Lift(s.embedNames))
	vectors, err := embed(ctx, domain.CityNames(cities)).Unwrap()
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(cities) {
		return nil, fmt.Errorf("lookup: ingest: got %d vectors for %d cities", len(vectors), len(cities))
	}

	store := fn.TracedStage("lookup.ingest_city", fn.Lift(s.ingestCity))
	for i, c := range cities {
		w, err := store(ctx, cityVector{city: c, vector: vectors[i]}).Unwrap()
		if err != nil {
			return out, err
		}
		if w == nil {
			s.m.skipped.Inc()
			s.logger.Info("no weather, skipping", "city", c.Name)
			continue
		}
		s.m.ingested.Inc()
		out[c.Name] = *w
	}
	s.logger.Info("ingest done", "cities", len(cities), "ingested", len(out))
	return out, nil
}

type cityVector struct {
	city   domain.City
	vector []float32
}

func (s *Service) embedNames(ctx context.Context, names []string) ([][]float32, error) {
	start := time.Now()
	defer s.m.embedDuration.Since(start)
	vecs, err := s.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("lookup: embed cities: %w", err)
	}
	return vecs, nil
}

// ingestCity returns nil weather when the city was skipped.
func (s *Service) ingestCity(ctx context.Context, cv cityVector) (*domain.Weather, error) {
	w, err := s.weather.Current(ctx, cv.city.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("lookup: weather for %s: %w", cv.city.Name, err)
	}
	if w == nil {
		return nil, nil
	}
	rec := semantic.Record{ID: cv.city.Name, Vector: cv.vector, Weather: *w}
	if err := s.index.Upsert(ctx, []semantic.Record{rec}); err != nil {
		return nil, fmt.Errorf("lookup: store %s: %w", cv.city.Name, err)
	}
	s.publish(ctx, domain.CityWeather{City: cv.city, Weather: *w})
	return w, nil
}

func (s *Service) publish(ctx context.Context, ev domain.CityWeather) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, IngestedSubject, ev); err != nil {
		s.logger.Warn("publish ingest event", "city", ev.City.Name, "err", err)
	}
}
