package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/WessleyAI/citycast/engine/domain"
	"go.etcd.io/bbolt"
)

var (
	bucketMeta    = []byte("meta")
	bucketVectors = []byte("vectors")
	keyDims       = []byte("dims")
)

// BoltStore is a single-file vector index for local runs. Vectors are
// mirrored in memory and searched by brute force.
type BoltStore struct {
	db   *bbolt.DB
	mu   sync.RWMutex
	dims int
	recs map[string]boltEntry
}

type boltEntry struct {
	Vector      []float32 `json:"v"`
	Temperature float64   `json:"t"`
	WindSpeed   float64   `json:"w"`
}

// NewBoltStore opens (or creates) the database at path and loads any
// existing vectors.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("semantic: open bolt %s: %w", path, err)
	}
	s := &BoltStore{db: db, recs: make(map[string]boltEntry)}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) load() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("semantic: create meta bucket: %w", err)
		}
		if raw := meta.Get(keyDims); raw != nil {
			n, err := strconv.Atoi(string(raw))
			if err != nil {
				return fmt.Errorf("semantic: corrupt dims %q: %w", raw, err)
			}
			s.dims = n
		}
		b, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return fmt.Errorf("semantic: create vectors bucket: %w", err)
		}
		return b.ForEach(func(k, v []byte) error {
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("semantic: decode %q: %w", k, err)
			}
			s.recs[string(k)] = e
			return nil
		})
	})
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// EnsureCollection records the vector size on first use. Reopening a file
// with a different size fails with ErrDimensionMismatch.
func (s *BoltStore) EnsureCollection(ctx context.Context, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims != 0 {
		if s.dims != dims {
			return fmt.Errorf("semantic: bolt index has %d dims, want %d: %w", s.dims, dims, ErrDimensionMismatch)
		}
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyDims, []byte(strconv.Itoa(dims)))
	})
	if err != nil {
		return fmt.Errorf("semantic: store dims: %w", err)
	}
	s.dims = dims
	return nil
}

// Upsert writes records keyed by city name, replacing earlier entries.
func (s *BoltStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]boltEntry, len(records))
	for _, r := range records {
		if err := validateRecord(r, s.dims); err != nil {
			return err
		}
		staged[r.ID] = boltEntry{Vector: r.Vector, Temperature: r.Weather.Temperature, WindSpeed: r.Weather.WindSpeed}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for id, e := range staged {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d records: %w", len(records), err)
	}
	for id, e := range staged {
		s.recs[id] = e
	}
	return nil
}

// Search ranks every stored vector by cosine similarity to vector and
// returns the best topK. Ties are broken by city name.
func (s *BoltStore) Search(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims > 0 && len(vector) != s.dims {
		return nil, fmt.Errorf("semantic: query has %d dims, want %d: %w", len(vector), s.dims, ErrDimensionMismatch)
	}
	if topK <= 0 || len(s.recs) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(s.recs))
	for id, e := range s.recs {
		matches = append(matches, Match{
			ID:      id,
			Score:   cosine(vector, e.Vector),
			Weather: domain.Weather{Temperature: e.Temperature, WindSpeed: e.WindSpeed},
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored records.
func (s *BoltStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs), nil
}
