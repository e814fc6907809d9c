package domain

// DefaultCities returns the demo city list in ingestion order.
func DefaultCities() []City {
	return []City{
		{Name: "Madrid", Coordinates: Coordinates{Latitude: 40.42, Longitude: -3.70}},
		{Name: "Barcelona", Coordinates: Coordinates{Latitude: 41.39, Longitude: 2.16}},
		{Name: "Bilbao", Coordinates: Coordinates{Latitude: 43.26, Longitude: -2.93}},
	}
}

// CityNames returns the names of cities, preserving order.
func CityNames(cities []City) []string {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = c.Name
	}
	return names
}
