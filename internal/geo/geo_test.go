package geo

import (
	"errors"
	"math"
	"testing"
)

func TestVec2FromString_Valid(t *testing.T) {
	v, err := Vec2FromString("100.5,200.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", v.X)
	}
	if v.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", v.Y)
	}
}

func TestVec2FromString_Whitespace(t *testing.T) {
	v, err := Vec2FromString(" -4.5 , 51.9 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.X != -4.5 || v.Y != 51.9 {
		t.Errorf("expected (-4.5, 51.9), got %v", v)
	}
}

func TestVec2FromString_Invalid(t *testing.T) {
	for _, in := range []string{"", "100.5", "1,2,3", "abc,2", "1,abc", "NaN,1", "1,+Inf"} {
		_, err := Vec2FromString(in)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestNewReference_Invalid(t *testing.T) {
	cases := []struct {
		lon, lat, scale float64
	}{
		{181, 0, 1},
		{0, 89, 1},
		{math.NaN(), 0, 1},
		{0, 0, 0},
		{0, 0, -1},
		{0, 0, math.Inf(1)},
	}
	for _, c := range cases {
		if _, err := NewReference(c.lon, c.lat, c.scale); !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%v: expected ErrInvalidCoordinates, got %v", c, err)
		}
	}
}

func TestReference_OriginMapsToItself(t *testing.T) {
	ref, err := NewReference(4.4792, 51.9225, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lon, lat := ref.LonLat(ref0())
	if math.Abs(lon-4.4792) > 1e-9 {
		t.Errorf("expected lon=4.4792, got %f", lon)
	}
	if math.Abs(lat-51.9225) > 1e-9 {
		t.Errorf("expected lat=51.9225, got %f", lat)
	}
}

func TestReference_EquatorDegree(t *testing.T) {
	// One degree of longitude at the equator is 111319.49 m in EPSG:3857.
	ref, err := NewReference(0, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lon, lat := ref.LonLat(vec(111319.49, 0))
	if math.Abs(lon-1) > 1e-4 {
		t.Errorf("expected lon=1, got %f", lon)
	}
	if math.Abs(lat) > 1e-9 {
		t.Errorf("expected lat=0, got %f", lat)
	}
}

func TestReference_NorthIsPositiveY(t *testing.T) {
	ref, err := NewReference(4.4792, 51.9225, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, south := ref.LonLat(vec(0, -50))
	_, north := ref.LonLat(vec(0, 50))
	if !(north > 51.9225 && south < 51.9225) {
		t.Errorf("expected south < origin < north, got %f, %f", south, north)
	}
}

func TestReference_Point(t *testing.T) {
	ref, err := NewReference(10, 20, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pt, err := ref.Point(ref0())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, ok := pt.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if math.Abs(coords.X-10) > 1e-9 || math.Abs(coords.Y-20) > 1e-9 {
		t.Errorf("expected (10, 20), got (%f, %f)", coords.X, coords.Y)
	}
}
