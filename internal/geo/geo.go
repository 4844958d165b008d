// Package geo decides whether a worker's reported position lies inside a
// work-area polygon.
//
// Coordinates are (latitude, longitude) in degrees. For planar tests the
// longitude is used as x and the latitude as y.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// MinVertices is the smallest vertex count that describes an area.
const MinVertices = 3

var ErrInvalidPoint = errors.New("invalid coordinates")

// Point is a WGS84 position.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate rejects coordinates outside the WGS84 ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return fmt.Errorf("%w: NaN", ErrInvalidPoint)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidPoint, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidPoint, p.Lon)
	}
	return nil
}

// Polygon is an ordered ring of vertices. The closing vertex is implicit.
type Polygon []Point

// Usable reports whether the polygon has enough vertices to evaluate.
func (pg Polygon) Usable() bool {
	return len(pg) >= MinVertices
}

// Centroid returns the unweighted mean of the vertices.
func Centroid(pg Polygon) Point {
	if len(pg) == 0 {
		return Point{}
	}
	var c Point
	for _, v := range pg {
		c.Lat += v.Lat
		c.Lon += v.Lon
	}
	n := float64(len(pg))
	return Point{Lat: c.Lat / n, Lon: c.Lon / n}
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
