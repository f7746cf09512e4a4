package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearcare/provider-discovery/internal/discovery"
)

func f(v float64) *float64 { return &v }

func TestNormalizeNode(t *testing.T) {
	rec, ok := normalizeElement(overpassElement{
		Type: "node",
		ID:   4211,
		Lat:  f(28.6123),
		Lon:  f(77.2045),
		Tags: map[string]string{
			"amenity":               "doctors",
			"name":                  "Dr. Mehra Clinic",
			"healthcare:speciality": "cardiology",
			"phone":                 "+91 11 2345 6789",
			"website":               "https://example.in",
			"opening_hours":         "Mo-Sa 09:00-18:00",
			"wheelchair":            "yes",
		},
	})
	require.True(t, ok)

	assert.Equal(t, "node/4211", rec.ExternalID)
	assert.Equal(t, "Dr. Mehra Clinic", rec.Name)
	assert.Equal(t, discovery.CategoryDoctor, rec.Category)
	assert.Equal(t, "cardiology", rec.Specialty)
	assert.Equal(t, "+91 11 2345 6789", rec.Phone)
	assert.Equal(t, 28.6123, rec.Latitude)
	assert.Equal(t, 77.2045, rec.Longitude)

	// Auxiliary tags pass through untouched; consumed tags do not.
	assert.Equal(t, "Mo-Sa 09:00-18:00", rec.Metadata["opening_hours"])
	assert.Equal(t, "yes", rec.Metadata["wheelchair"])
	assert.NotContains(t, rec.Metadata, "name")
	assert.NotContains(t, rec.Metadata, "amenity")
}

func TestNormalizeWayUsesCenter(t *testing.T) {
	rec, ok := normalizeElement(overpassElement{
		Type: "way",
		ID:   98,
		Center: &struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		}{Lat: 28.60, Lon: 77.21},
		Tags: map[string]string{"amenity": "hospital"},
	})
	require.True(t, ok)
	assert.Equal(t, "way/98", rec.ExternalID)
	assert.Equal(t, 28.60, rec.Latitude)
	assert.Equal(t, 77.21, rec.Longitude)
	assert.Equal(t, discovery.CategoryHospital, rec.Category)
}

func TestNormalizeDropsElementWithoutCoordinates(t *testing.T) {
	_, ok := normalizeElement(overpassElement{
		Type: "way",
		ID:   7,
		Tags: map[string]string{"amenity": "clinic", "name": "Floating Clinic"},
	})
	assert.False(t, ok)
}

func TestNormalizeNameFallback(t *testing.T) {
	rec, ok := normalizeElement(overpassElement{
		Type: "node", ID: 1, Lat: f(1), Lon: f(1),
		Tags: map[string]string{"amenity": "hospital"},
	})
	require.True(t, ok)
	assert.Equal(t, "Unnamed hospital", rec.Name)

	rec, ok = normalizeElement(overpassElement{
		Type: "node", ID: 2, Lat: f(1), Lon: f(1),
		Tags: map[string]string{"healthcare": "blood_donation"},
	})
	require.True(t, ok)
	assert.Equal(t, discovery.CategoryBloodBank, rec.Category)
	assert.Equal(t, "Unnamed blood bank", rec.Name)
}

func TestNormalizeFreeTextCategoryFallback(t *testing.T) {
	rec, ok := normalizeElement(overpassElement{
		Type: "node", ID: 3, Lat: f(1), Lon: f(1),
		Tags: map[string]string{"healthcare": "physiotherapist"},
	})
	require.True(t, ok)
	assert.Equal(t, discovery.Category("physiotherapist"), rec.Category)
}

func TestNormalizeContactPrefixFallbacks(t *testing.T) {
	rec, ok := normalizeElement(overpassElement{
		Type: "node", ID: 4, Lat: f(1), Lon: f(1),
		Tags: map[string]string{
			"amenity":         "clinic",
			"contact:phone":   "123",
			"contact:website": "https://clinic.example",
		},
	})
	require.True(t, ok)
	assert.Equal(t, "123", rec.Phone)
	assert.Equal(t, "https://clinic.example", rec.Website)
}

func TestAssembleAddressSkipsAbsentParts(t *testing.T) {
	full := assembleAddress(map[string]string{
		"addr:housenumber": "12A",
		"addr:street":      "Ring Road",
		"addr:suburb":      "Lajpat Nagar",
		"addr:city":        "New Delhi",
		"addr:postcode":    "110024",
	})
	assert.Equal(t, "12A, Ring Road, Lajpat Nagar, New Delhi, 110024", full)

	partial := assembleAddress(map[string]string{
		"addr:street": "Ring Road",
		"addr:city":   "New Delhi",
	})
	assert.Equal(t, "Ring Road, New Delhi", partial)
	assert.NotContains(t, partial, ", ,")

	assert.Empty(t, assembleAddress(map[string]string{}))
	assert.Empty(t, assembleAddress(nil))
}
