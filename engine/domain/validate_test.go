package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateCity(t *testing.T) {
	if err := ValidateCity(City{Name: "Madrid"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"", "   "} {
		err := ValidateCity(City{Name: name})
		if !errors.Is(err, ErrInvalidCity) {
			t.Errorf("name %q: expected ErrInvalidCity, got %v", name, err)
		}
	}
}

func TestValidateCities_Duplicate(t *testing.T) {
	cities := []City{{Name: "Madrid"}, {Name: "Bilbao"}, {Name: "Madrid"}}
	err := ValidateCities(cities)
	if !errors.Is(err, ErrInvalidCity) {
		t.Fatalf("expected ErrInvalidCity, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Value != "Madrid" {
		t.Fatalf("expected ValidationError for Madrid, got %v", err)
	}
}

func TestValidateCities_Defaults(t *testing.T) {
	if err := ValidateCities(DefaultCities()); err != nil {
		t.Fatalf("default cities invalid: %v", err)
	}
}

func TestValidateWeather(t *testing.T) {
	tests := []struct {
		name  string
		w     Weather
		field string
	}{
		{"ok", Weather{Temperature: 15, WindSpeed: 10}, ""},
		{"negative ok", Weather{Temperature: -4.5, WindSpeed: 0}, ""},
		{"nan temp", Weather{Temperature: math.NaN(), WindSpeed: 1}, "temperature"},
		{"inf wind", Weather{Temperature: 1, WindSpeed: math.Inf(1)}, "wind_speed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeather(tt.w)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
			if !errors.Is(err, ErrInvalidWeather) {
				t.Errorf("expected ErrInvalidWeather")
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery("weather in madrid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateQuery(" \t"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("name", "", ErrInvalidCity)
	if !strings.Contains(err.Error(), "invalid city") || !strings.Contains(err.Error(), "name") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if errors.Unwrap(err) != ErrInvalidCity {
		t.Fatal("Unwrap should return the sentinel")
	}
}

func TestCityNames(t *testing.T) {
	names := CityNames(DefaultCities())
	want := []string{"Madrid", "Barcelona", "Bilbao"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
