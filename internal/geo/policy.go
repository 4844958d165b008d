package geo

import (
	"fmt"
	"strings"
)

// ContainmentPolicy is the rule used to decide "is the point inside the area".
type ContainmentPolicy interface {
	Name() string
	// Contains assumes pg.Usable() is true.
	Contains(pg Polygon, p Point) bool
}

const (
	PolicyRayCasting     = "raycast"
	PolicyCentroidRadius = "centroid"
)

// DefaultRadiusKm is the acceptance radius of CentroidRadius.
const DefaultRadiusKm = 5.0

// RayCasting is the even-odd point-in-polygon test. An edge toggles the
// state only when p.Lat lies in the half-open span between its endpoints, so
// a vertex exactly on the ray is counted once.
type RayCasting struct{}

func (RayCasting) Name() string { return PolicyRayCasting }

func (RayCasting) Contains(pg Polygon, p Point) bool {
	x, y := p.Lon, p.Lat
	inside := false
	for i, j := 0, len(pg)-1; i < len(pg); j, i = i, i+1 {
		xi, yi := pg[i].Lon, pg[i].Lat
		xj, yj := pg[j].Lon, pg[j].Lat
		if (yi > y) != (yj > y) {
			xCross := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// CentroidRadius accepts points within RadiusKm of the vertex centroid.
type CentroidRadius struct {
	RadiusKm float64
}

func (CentroidRadius) Name() string { return PolicyCentroidRadius }

func (c CentroidRadius) Contains(pg Polygon, p Point) bool {
	radius := c.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}
	return Haversine(Centroid(pg), p) <= radius
}

// PolicyByName builds the policy selected in configuration.
func PolicyByName(name string, radiusKm float64) (ContainmentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyRayCasting, "ray_casting":
		return RayCasting{}, nil
	case PolicyCentroidRadius, "centroid_radius":
		return CentroidRadius{RadiusKm: radiusKm}, nil
	default:
		return nil, fmt.Errorf("unknown containment policy %q", name)
	}
}

// Status is the outcome class of a containment check.
type Status string

const (
	StatusInside             Status = "inside"
	StatusOutside            Status = "outside"
	StatusPolygonUnavailable Status = "polygon_unavailable"
)

const (
	MessageInside             = "Location confirmed"
	MessageOutside            = "Location is outside the allowed zone"
	MessagePolygonUnavailable = "Polygon not found"
)

// Result is the decision plus a message suitable for the client.
type Result struct {
	Status  Status
	Inside  bool
	Message string
}

// Check evaluates p against pg with the given policy. A polygon with fewer
// than MinVertices vertices yields StatusPolygonUnavailable.
func Check(policy ContainmentPolicy, pg Polygon, p Point) Result {
	if !pg.Usable() {
		return Result{Status: StatusPolygonUnavailable, Message: MessagePolygonUnavailable}
	}
	if policy.Contains(pg, p) {
		return Result{Status: StatusInside, Inside: true, Message: MessageInside}
	}
	return Result{Status: StatusOutside, Message: MessageOutside}
}
