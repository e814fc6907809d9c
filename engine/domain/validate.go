package domain

import (
	"math"
	"strconv"
	"strings"
)

// ValidateCity checks the city name is usable as a record id.
// Coordinates are not range-checked; the weather provider rejects bad ones.
func ValidateCity(c City) error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", c.Name, ErrInvalidCity)
	}
	return nil
}

// ValidateCities validates every city and rejects duplicate names.
func ValidateCities(cities []City) error {
	seen := make(map[string]bool, len(cities))
	for _, c := range cities {
		if err := ValidateCity(c); err != nil {
			return err
		}
		if seen[c.Name] {
			return NewValidationError("name", c.Name, ErrInvalidCity)
		}
		seen[c.Name] = true
	}
	return nil
}

// ValidateWeather rejects NaN and infinite readings.
func ValidateWeather(w Weather) error {
	if !finite(w.Temperature) {
		return NewValidationError("temperature", strconv.FormatFloat(w.Temperature, 'g', -1, 64), ErrInvalidWeather)
	}
	if !finite(w.WindSpeed) {
		return NewValidationError("wind_speed", strconv.FormatFloat(w.WindSpeed, 'g', -1, 64), ErrInvalidWeather)
	}
	return nil
}

// ValidateQuery rejects blank prompts.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return NewValidationError("query", q, ErrInvalidQuery)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
