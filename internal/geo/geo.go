package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// Meters per degree of latitude; close enough for the radii we serve.
	metersPerDegreeLat = 111320.0

	// Longitude degrees shrink with cos(lat); near the poles the divisor
	// collapses, so it is floored to keep BoundingBox total.
	minCosLat = 1e-6
)

// Bounds is a geographic bounding box (WGS 84), inclusive on all edges.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies within the bounds, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundingBox returns a box that fully contains the circle of radiusMeters
// around (lat, lon). It is a planar approximation: the box is a superset of
// the true circle, and exact filtering is expected to happen afterwards via
// DistanceKm.
func BoundingBox(lat, lon, radiusMeters float64) Bounds {
	latDelta := radiusMeters / metersPerDegreeLat

	cosLat := math.Abs(math.Cos(lat * math.Pi / 180))
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	lonDelta := radiusMeters / (metersPerDegreeLat * cosLat)

	return Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
