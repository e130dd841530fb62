package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	p := Point{Lat: 17.385, Lng: 78.4867}
	assert.Equal(t, 0.0, DistanceMeters(p, p))
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := Point{Lat: 17.385, Lng: 78.4867}
	b := Point{Lat: 17.4, Lng: 78.5}
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-6)
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// one degree of latitude is about 111.2 km
	d := DistanceMeters(Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0})
	assert.InDelta(t, 111195, d, 50)
}

func TestDistanceMeters_GrowsWithOffset(t *testing.T) {
	center := Point{Lat: 28.6139, Lng: 77.209}
	prev := 0.0
	for _, off := range []float64{0.0005, 0.001, 0.002, 0.01} {
		d := DistanceMeters(center, Point{Lat: center.Lat + off, Lng: center.Lng})
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestWithin(t *testing.T) {
	center := Point{Lat: 28.6139, Lng: 77.209}

	d, ok := Within(center, center, 0)
	assert.Equal(t, 0, d)
	assert.True(t, ok)

	near := Point{Lat: 28.6149, Lng: 77.209} // ~111 m
	d, ok = Within(center, near, 200)
	assert.True(t, ok)
	assert.InDelta(t, 111, d, 2)

	d, ok = Within(center, near, d)
	assert.False(t, ok, "a fraction of a meter past the radius is outside")
	assert.InDelta(t, 111, d, 2)

	_, ok = Within(center, near, d+1)
	assert.True(t, ok)

	_, ok = Within(center, Point{Lat: 28.6239, Lng: 77.209}, 200)
	assert.False(t, ok)
}

func TestWithin_ComparesBeforeTruncating(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	// 0.0018 degrees of latitude is about 200.15 m
	p := Point{Lat: 0.0018, Lng: 0}
	exact := DistanceMeters(center, p)
	assert.Greater(t, exact, 200.0)
	assert.Less(t, exact, 201.0)

	d, ok := Within(center, p, 200)
	assert.Equal(t, 200, d)
	assert.False(t, ok)
}

func TestPoint_IsZero(t *testing.T) {
	assert.True(t, Point{}.IsZero())
	assert.False(t, Point{Lat: 1}.IsZero())
}
