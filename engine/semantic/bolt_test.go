package semantic

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/pkg/config"
)

func openBolt(t *testing.T, path string) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	return s
}

func TestBoltStore_UpsertSearch(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "idx.db"))
	defer s.Close()

	if err := s.EnsureCollection(ctx, 2); err != nil {
		t.Fatal(err)
	}
	err := s.Upsert(ctx, []Record{
		{ID: "Madrid", Vector: []float32{1, 0}, Weather: domain.Weather{Temperature: 15, WindSpeed: 10}},
		{ID: "Bilbao", Vector: []float32{0, 1}, Weather: domain.Weather{Temperature: 12, WindSpeed: 20}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Search(ctx, []float32{0.9, 0.1}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "Madrid" {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].Weather.Temperature != 15 || matches[0].Weather.WindSpeed != 10 {
		t.Errorf("weather = %+v", matches[0].Weather)
	}

	all, _ := s.Search(ctx, []float32{0.9, 0.1}, 10)
	if len(all) != 2 || all[0].Score < all[1].Score {
		t.Errorf("expected 2 matches best-first, got %+v", all)
	}
}

func TestBoltStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "idx.db"))
	defer s.Close()
	_ = s.EnsureCollection(ctx, 2)

	_ = s.Upsert(ctx, []Record{{ID: "Madrid", Vector: []float32{1, 0}, Weather: domain.Weather{Temperature: 15}}})
	_ = s.Upsert(ctx, []Record{{ID: "Madrid", Vector: []float32{1, 0}, Weather: domain.Weather{Temperature: 22}}})

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	m, _ := s.Search(ctx, []float32{1, 0}, 1)
	if m[0].Weather.Temperature != 22 {
		t.Errorf("temperature = %v, want 22", m[0].Weather.Temperature)
	}
}

func TestBoltStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx.db")

	s := openBolt(t, path)
	_ = s.EnsureCollection(ctx, 2)
	_ = s.Upsert(ctx, []Record{{ID: "Barcelona", Vector: []float32{1, 1}, Weather: domain.Weather{Temperature: 18, WindSpeed: 5}}})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s = openBolt(t, path)
	defer s.Close()
	if n, _ := s.Count(ctx); n != 1 {
		t.Fatalf("Count after reopen = %d", n)
	}
	if err := s.EnsureCollection(ctx, 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := s.EnsureCollection(ctx, 2); err != nil {
		t.Errorf("same dims: %v", err)
	}
}

func TestBoltStore_Validation(t *testing.T) {
	ctx := context.Background()
	s := openBolt(t, filepath.Join(t.TempDir(), "idx.db"))
	defer s.Close()
	_ = s.EnsureCollection(ctx, 2)

	if err := s.Upsert(ctx, []Record{{ID: "Madrid", Vector: []float32{1}}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := s.Search(ctx, []float32{1, 2, 3}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("rejected upsert left %d records", n)
	}
}

func TestBoltStore_EmptySearch(t *testing.T) {
	s := openBolt(t, filepath.Join(t.TempDir(), "idx.db"))
	defer s.Close()
	m, err := s.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil || len(m) != 0 {
		t.Errorf("Search on empty = %v, %v", m, err)
	}
}

func TestOpen_Bolt(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendBolt, BoltPath: filepath.Join(t.TempDir(), "idx.db"), EmbedDims: 4}
	idx, err := Open(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()
	if _, ok := idx.(*BoltStore); !ok {
		t.Fatalf("got %T", idx)
	}
	if err := idx.Upsert(context.Background(), []Record{{ID: "Madrid", Vector: []float32{1, 2}}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("dims from config not applied: %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "chroma"}, slog.Default())
	if !errors.Is(err, config.ErrInvalidBackend) {
		t.Errorf("expected ErrInvalidBackend, got %v", err)
	}
}
