package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// destination computes the point at the given distance and initial bearing
// from a start point, on a sphere of earthRadiusKm. Used to probe the edge
// of the query circle.
func destination(lat, lon, distKm, bearingDeg float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	theta := bearingDeg * math.Pi / 180
	delta := distKm / earthRadiusKm

	phi2 := math.Asin(math.Sin(phi)*math.Cos(delta) + math.Cos(phi)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*math.Sin(phi2),
	)

	return phi2 * 180 / math.Pi, lambda2 * 180 / math.Pi
}

func TestBoundingBoxContainsCircle(t *testing.T) {
	centers := []struct {
		name     string
		lat, lon float64
	}{
		{"equator", 0, 0},
		{"delhi", 28.61, 77.20},
		{"oslo", 59.91, 10.75},
		{"southern", -33.87, 151.21},
	}
	radii := []float64{500, 5000, 10000, 50000}

	for _, c := range centers {
		for _, radius := range radii {
			box := BoundingBox(c.lat, c.lon, radius)
			require.True(t, box.Contains(c.lat, c.lon), "%s: center outside its own box", c.name)

			// Points just inside the circle, all around it, must be in
			// the box. The 1% margin absorbs the difference between the
			// planar meters-per-degree constant and the haversine sphere.
			for bearing := 0.0; bearing < 360; bearing += 15 {
				lat, lon := destination(c.lat, c.lon, radius/1000*0.99, bearing)
				assert.True(t, box.Contains(lat, lon),
					"%s r=%.0fm bearing=%.0f: (%f, %f) escaped box %+v", c.name, radius, bearing, lat, lon, box)
			}
		}
	}
}

func TestBoundingBoxTotality(t *testing.T) {
	// Degenerate but finite inputs must not produce NaN or Inf.
	for _, in := range [][3]float64{
		{90, 0, 10000},
		{-90, 180, 10000},
		{0, 0, 0},
		{89.9999, -179.9999, 50000},
	} {
		box := BoundingBox(in[0], in[1], in[2])
		for _, v := range []float64{box.MinLat, box.MaxLat, box.MinLon, box.MaxLon} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite bound for input %v: %+v", in, box)
		}
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{28.61, 77.20, 28.57, 77.21},
		{0, 0, 0, 1},
		{59.91, 10.75, -33.87, 151.21},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		assert.Equal(t, ab, ba)
	}

	assert.Zero(t, DistanceKm(28.61, 77.20, 28.61, 77.20))
}

func TestDistanceKmKnownValues(t *testing.T) {
	// One degree along the equator or a meridian is ~111.19 km on a
	// 6371 km sphere.
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 0, 1), 0.01)
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)

	// Antipodal points are half the circumference apart.
	assert.InDelta(t, math.Pi*earthRadiusKm, DistanceKm(0, 0, 0, 180), 0.01)
}

func TestDistanceAgreesWithDestination(t *testing.T) {
	lat, lon := destination(28.61, 77.20, 3.8, 45)
	assert.InDelta(t, 3.8, DistanceKm(28.61, 77.20, lat, lon), 0.01)
}
