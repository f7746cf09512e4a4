package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/geo"
)

// fixedFetcher serves a static result set; emptyStore caches nothing so
// every request goes live.
type fixedFetcher struct {
	records []discovery.ProviderRecord
}

func (f *fixedFetcher) FetchWindow(context.Context, geo.Bounds) ([]discovery.ProviderRecord, error) {
	return f.records, nil
}

type emptyStore struct{}

func (emptyStore) FindInBoundingBox(context.Context, geo.Bounds, discovery.Category) ([]discovery.ProviderRecord, error) {
	return nil, nil
}
func (emptyStore) Upsert(context.Context, discovery.ProviderRecord) error { return nil }
func (emptyStore) UpsertBatch(_ context.Context, recs []discovery.ProviderRecord) discovery.BatchResult {
	return discovery.BatchResult{Saved: len(recs)}
}

func newTestApp(records []discovery.ProviderRecord) *fiber.App {
	app := fiber.New()
	svc := discovery.NewService(emptyStore{}, &fixedFetcher{records: records}, discovery.ServiceOptions{})
	RegisterRoutes(app, svc, nil)
	return app
}

func TestNearbyRequiresCoordinates(t *testing.T) {
	app := newTestApp(nil)

	for _, target := range []string{
		"/api/v1/providers/nearby",
		"/api/v1/providers/nearby?lat=28.61",
		"/api/v1/providers/nearby?lat=abc&lon=77.20",
		"/api/v1/providers/nearby?lat=91&lon=77.20",
		"/api/v1/providers/nearby?lat=28.61&lon=77.20&radius=-5",
		"/api/v1/providers/nearby?lat=28.61&lon=77.20&category=spaceport",
		"/api/v1/providers/nearby?address=Connaught+Place", // no geocoder configured
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "target %s", target)
	}
}

func TestNearbyReturnsRankedLiveResults(t *testing.T) {
	app := newTestApp([]discovery.ProviderRecord{
		{ExternalID: "node/2", Name: "Far Clinic", Category: discovery.CategoryDoctor, Latitude: 28.61 + 3.8/111.32, Longitude: 77.20},
		{ExternalID: "node/1", Name: "Near Clinic", Category: discovery.CategoryDoctor, Latitude: 28.61 + 1.2/111.32, Longitude: 77.20},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/nearby?lat=28.61&lon=77.20&category=doctor", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Provenance string                     `json:"provenance"`
		Count      int                        `json:"count"`
		Results    []discovery.RankedProvider `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "live", body.Provenance)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "node/1", body.Results[0].ExternalID)
	assert.InDelta(t, 1.2, body.Results[0].DistanceKm, 0.05)
}

func TestNearbyEmptyResultIsOK(t *testing.T) {
	app := newTestApp(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/nearby?lat=28.61&lon=77.20", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Provenance string            `json:"provenance"`
		Count      int               `json:"count"`
		Results    []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "live", body.Provenance)
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Results, "results must serialize as [], not null")
}

func TestBloodBankRouteAppliesDefaults(t *testing.T) {
	app := newTestApp([]discovery.ProviderRecord{
		// 8 km out: inside the blood-bank default radius (10 km), outside
		// the clinical default (5 km).
		{ExternalID: "node/7", Name: "Rotary Blood Bank", Category: discovery.CategoryBloodBank, Latitude: 28.61 + 8.0/111.32, Longitude: 77.20},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bloodbanks/nearby?lat=28.61&lon=77.20", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int                        `json:"count"`
		Results []discovery.RankedProvider `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, discovery.CategoryBloodBank, body.Results[0].Category)
}
