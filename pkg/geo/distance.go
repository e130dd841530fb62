package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distance
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees
type Point struct {
	Lat float64
	Lng float64
}

// IsZero reports whether the point is the 0,0 placeholder
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// DistanceMeters returns the haversine distance between two points in meters
func DistanceMeters(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Within reports whether p lies inside the circle around center. The check
// uses the exact distance; the returned distance is truncated to whole meters
// for storage.
func Within(center, p Point, radiusMeters int) (distance int, inside bool) {
	d := DistanceMeters(center, p)
	return int(d), d <= float64(radiusMeters)
}
