package domain

import "context"

// KeyPrefix is the default key namespace in the shared cache store.
const KeyPrefix = "slotdex:"

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the point is the "unresolved" sentinel.
func (p Point) IsZero() bool { return p.Lat == 0 && p.Lon == 0 }

// Normalized scales the point into [-1, 1] on both axes (lat/90, lon/180).
func (p Point) Normalized() [2]float64 {
	return [2]float64{p.Lat / 90.0, p.Lon / 180.0}
}

// Geocoder resolves a place name to coordinates. Implementations may block on network I/O.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (Point, error)
}

// LocationResolver is the best-effort geocoding contract used by feature extraction:
// it never fails, unresolvable names map to the zero Point.
type LocationResolver interface {
	Resolve(ctx context.Context, name string) Point
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
