package semantic

import (
	"errors"
	"fmt"

	"github.com/WessleyAI/citycast/engine/domain"
)

// Payload keys shared by both backends.
const (
	keyCity        = "city"
	keyTemperature = "temperature"
	keyWindSpeed   = "wind_speed"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrIndexNotReady     = errors.New("index not ready")
)

// Record is a city vector plus its weather metadata. ID is the city name.
type Record struct {
	ID      string
	Vector  []float32
	Weather domain.Weather
}

// Match is a single nearest-neighbour hit. Score is cosine similarity.
type Match struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Weather domain.Weather `json:"weather"`
}

// validateRecord is the store boundary check. dims <= 0 skips the length check.
func validateRecord(r Record, dims int) error {
	if err := domain.ValidateCity(domain.City{Name: r.ID}); err != nil {
		return err
	}
	if len(r.Vector) == 0 {
		return fmt.Errorf("semantic: record %q: empty vector: %w", r.ID, ErrDimensionMismatch)
	}
	if dims > 0 && len(r.Vector) != dims {
		return fmt.Errorf("semantic: record %q: expected %d dims, got %d: %w", r.ID, dims, len(r.Vector), ErrDimensionMismatch)
	}
	return domain.ValidateWeather(r.Weather)
}
