package geo

import (
	"math"
	"testing"
)

// square around central Moscow, vertices as (lat, lon)
var moscow = Polygon{
	{Lat: 55.75, Lon: 37.61},
	{Lat: 55.76, Lon: 37.61},
	{Lat: 55.76, Lon: 37.62},
	{Lat: 55.75, Lon: 37.62},
}

func TestRayCasting(t *testing.T) {
	triangle := Polygon{{0, 0}, {10, 0}, {0, 10}}
	concave := Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {5, 5}}

	tests := []struct {
		name string
		pg   Polygon
		p    Point
		want bool
	}{
		{"moscow centre", moscow, Point{55.755, 37.615}, true},
		{"far outside bbox", moscow, Point{10, 10}, false},
		{"just east", moscow, Point{55.755, 37.63}, false},
		{"just north", moscow, Point{55.77, 37.615}, false},
		{"triangle inside", triangle, Point{2, 2}, true},
		{"triangle outside hypotenuse", triangle, Point{6, 6}, false},
		{"concave notch", concave, Point{5, 2}, false},
		{"concave body", concave, Point{8, 5}, true},
		{"ray through vertex", Polygon{{0, 0}, {5, 5}, {10, 0}, {5, -5}}, Point{0, -1}, false},
		{"level with side vertex inside", Polygon{{0, 0}, {5, 5}, {10, 0}, {5, -5}}, Point{5, 0}, true},
		{"level with side vertex outside", Polygon{{0, 0}, {5, 5}, {10, 0}, {5, -5}}, Point{5, -10}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := (RayCasting{}).Contains(tc.pg, tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestRayCastingSelfIntersecting(t *testing.T) {
	bowtie := Polygon{{0, 0}, {10, 10}, {10, 0}, {0, 10}}
	// Degenerate input must not panic; the answer itself is not specified.
	_ = (RayCasting{}).Contains(bowtie, Point{5, 5})
	_ = Check(RayCasting{}, bowtie, Point{1, 5})
}

func TestCentroidRadius(t *testing.T) {
	policy := CentroidRadius{RadiusKm: DefaultRadiusKm}
	if !policy.Contains(moscow, Point{55.755, 37.615}) {
		t.Error("centroid itself must be inside")
	}
	// ~3.3 km north of the centroid
	if !policy.Contains(moscow, Point{55.785, 37.615}) {
		t.Error("point within 5 km should be inside")
	}
	// ~11 km north
	if policy.Contains(moscow, Point{55.855, 37.615}) {
		t.Error("point beyond 5 km should be outside")
	}
	if policy.Contains(moscow, Point{10, 10}) {
		t.Error("far point should be outside")
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid(moscow)
	if math.Abs(c.Lat-55.755) > 1e-9 || math.Abs(c.Lon-37.615) > 1e-9 {
		t.Errorf("Centroid = %+v", c)
	}
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	d := Haversine(Point{0, 0}, Point{1, 0})
	if math.Abs(d-111.195) > 0.01 {
		t.Errorf("Haversine = %v, want ~111.195", d)
	}
	if Haversine(moscow[0], moscow[0]) != 0 {
		t.Error("distance to self must be zero")
	}
}

func TestCheckPolygonUnavailable(t *testing.T) {
	for _, pg := range []Polygon{nil, {}, {{1, 1}}, {{1, 1}, {2, 2}}} {
		for _, policy := range []ContainmentPolicy{RayCasting{}, CentroidRadius{}} {
			res := Check(policy, pg, Point{1, 1})
			if res.Status != StatusPolygonUnavailable || res.Inside {
				t.Errorf("%s with %d vertices: got %+v", policy.Name(), len(pg), res)
			}
			if res.Message != MessagePolygonUnavailable {
				t.Errorf("message = %q", res.Message)
			}
		}
	}
}

func TestCheckMessages(t *testing.T) {
	in := Check(RayCasting{}, moscow, Point{55.755, 37.615})
	if !in.Inside || in.Status != StatusInside {
		t.Errorf("inside result = %+v", in)
	}
	out := Check(RayCasting{}, moscow, Point{10, 10})
	if out.Inside || out.Status != StatusOutside || out.Message != MessageOutside {
		t.Errorf("outside result = %+v", out)
	}
	if out.Message == MessagePolygonUnavailable {
		t.Error("outside must be distinguishable from missing polygon")
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("raycast", 0)
	if err != nil || p.Name() != PolicyRayCasting {
		t.Fatalf("raycast: %v %v", p, err)
	}
	p, err = PolicyByName("CENTROID", 2)
	if err != nil {
		t.Fatal(err)
	}
	if cr, ok := p.(CentroidRadius); !ok || cr.RadiusKm != 2 {
		t.Errorf("centroid policy = %#v", p)
	}
	if _, err := PolicyByName("nearest", 0); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestPointValidate(t *testing.T) {
	if err := (Point{55.7, 37.6}).Validate(); err != nil {
		t.Errorf("valid point: %v", err)
	}
	for _, p := range []Point{{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {math.NaN(), 0}} {
		if err := p.Validate(); err == nil {
			t.Errorf("%v should be invalid", p)
		}
	}
}
