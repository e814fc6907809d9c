package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/citycast/pkg/config"
)

// Index is implemented by both VectorStore and BoltStore.
type Index interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Index = (*VectorStore)(nil)
	_ Index = (*BoltStore)(nil)
)

// Open builds the backend named by cfg.Backend and ensures its collection
// exists with cfg.EmbedDims dimensions.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Index, error) {
	var (
		idx Index
		err error
	)
	switch cfg.Backend {
	case config.BackendQdrant:
		idx, err = New(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantAPIKey, WithLogger(logger))
	case config.BackendBolt:
		idx, err = NewBoltStore(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("semantic: open %q: %w", cfg.Backend, config.ErrInvalidBackend)
	}
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}
