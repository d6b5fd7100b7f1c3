// Package geo holds coordinates, bounding regions and great-circle distance.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the point is on the globe.
func (p Point) Validate() error {
	if !ValidateCoordinates(p.Lat, p.Lon) {
		return fmt.Errorf("point (%g, %g) out of range", p.Lat, p.Lon)
	}
	return nil
}

// BBox is a closed latitude/longitude rectangle. Antimeridian-crossing boxes are not supported.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Validate checks ordering and coordinate ranges.
func (b BBox) Validate() error {
	if !ValidateCoordinates(b.MinLat, b.MinLon) || !ValidateCoordinates(b.MaxLat, b.MaxLon) {
		return fmt.Errorf("bbox %s out of range", b)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bbox min_lat %g > max_lat %g", b.MinLat, b.MaxLat)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("bbox min_lon %g > max_lon %g", b.MinLon, b.MaxLon)
	}
	return nil
}

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g..%g N, %g..%g E]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// HaversineKm returns the great-circle distance in kilometers between two points.
func HaversineKm(a, b Point) float64 {
	lat1r := a.Lat * math.Pi / 180
	lat2r := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
