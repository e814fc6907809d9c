// Package domain holds the core types shared by the weather lookup engine.
package domain

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// City is a configured location. Name doubles as the vector-store record id.
type City struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// Weather is a current-conditions snapshot.
type Weather struct {
	Temperature float64 `json:"temperature"` // °C
	WindSpeed   float64 `json:"wind_speed"`  // km/h
}

// CityWeather pairs a city with its latest snapshot. Published on ingest.
type CityWeather struct {
	City    City    `json:"city"`
	Weather Weather `json:"weather"`
}
