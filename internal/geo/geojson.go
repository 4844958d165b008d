package geo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
)

// AxisOrder tells how a GeoJSON position maps onto (lat, lon).
type AxisOrder string

const (
	// AxisLonLat is the RFC 7946 order: [longitude, latitude].
	AxisLonLat AxisOrder = "lonlat"
	AxisLatLon AxisOrder = "latlon"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// ParseAxisOrder accepts "lonlat" or "latlon".
func ParseAxisOrder(s string) (AxisOrder, error) {
	switch AxisOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", AxisLonLat:
		return AxisLonLat, nil
	case AxisLatLon:
		return AxisLatLon, nil
	default:
		return "", fmt.Errorf("unknown axis order %q", s)
	}
}

// FromGeoJSON decodes a GeoJSON Polygon or MultiPolygon geometry and returns
// the outer ring of its first polygon, without the closing vertex.
// Empty input yields an empty polygon and no error.
func FromGeoJSON(raw []byte, order AxisOrder) (Polygon, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var poly *geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		poly = t
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, nil
		}
		poly = t.Polygon(0)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
	if poly == nil || poly.NumLinearRings() == 0 {
		return nil, nil
	}
	return FromCoords(poly.LinearRing(0).Coords(), order), nil
}

// FromCoords converts raw coordinate pairs. A trailing vertex equal to the
// first one is dropped.
func FromCoords(coords []geom.Coord, order AxisOrder) Polygon {
	pg := make(Polygon, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		if order == AxisLatLon {
			pg = append(pg, Point{Lat: c[0], Lon: c[1]})
		} else {
			pg = append(pg, Point{Lat: c[1], Lon: c[0]})
		}
	}
	if n := len(pg); n > 1 && pg[0] == pg[n-1] {
		pg = pg[:n-1]
	}
	return pg
}
