// Package geo provides great-circle distance and city-name recognition.
package geo

import (
	"math"
	"strings"
)

const earthRadiusKm = 6371

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	rLat1 := toRad(lat1)
	rLat2 := toRad(lat2)

	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(x))
}

// City is a gazetteer entry.
type City struct {
	Name string
	Lat  float64
	Lng  float64
}

// Gazetteer recognizes city names in free text by case-insensitive
// substring match. Entries are checked in order, so ASCII spelling
// variants ("Goteborg") can follow their canonical form.
type Gazetteer struct {
	cities []City
	lower  []string
}

// NewGazetteer builds a gazetteer from the given city list.
func NewGazetteer(cities []City) *Gazetteer {
	lower := make([]string, len(cities))
	for i, c := range cities {
		lower[i] = strings.ToLower(c.Name)
	}
	return &Gazetteer{cities: cities, lower: lower}
}

// Find returns the first city whose name occurs in text.
func (g *Gazetteer) Find(text string) (City, bool) {
	t := strings.ToLower(text)
	for i, name := range g.lower {
		if strings.Contains(t, name) {
			return g.cities[i], true
		}
	}
	return City{}, false
}
