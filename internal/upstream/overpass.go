package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/geo"
)

// DefaultMirrors are public Overpass API endpoints serving the same OSM
// dataset. Order matters: the first healthy, non-empty mirror wins.
var DefaultMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

const defaultAttemptTimeout = 25 * time.Second

// Client queries an ordered list of redundant Overpass mirrors for
// healthcare facilities in a bounding region. Any individual mirror may be
// slow, down, or replicating stale data; the client fails over in order and
// exits early on the first non-empty usable result.
type Client struct {
	mirrors  []string
	client   *http.Client
	timeout  time.Duration
	breakers []*gobreaker.CircuitBreaker
	log      *zap.Logger
}

// NewClient builds a mirror client. An empty mirror list is a configuration
// error, not a runtime fault.
func NewClient(mirrors []string, httpClient *http.Client, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if len(mirrors) == 0 {
		return nil, errors.New("upstream: at least one mirror endpoint is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	breakers := make([]*gobreaker.CircuitBreaker, len(mirrors))
	for i, m := range mirrors {
		breakers[i] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        m,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Client{
		mirrors:  mirrors,
		client:   httpClient,
		timeout:  timeout,
		breakers: breakers,
		log:      log,
	}, nil
}

// FetchWindow queries mirrors sequentially, in list order, with a hard
// per-attempt deadline. Transport failures, bad statuses and zero-usable
// responses all mean "try the next mirror". Exhausting every mirror without
// a non-empty result returns an empty slice and a nil error: that is a valid
// outcome, not an upstream error.
func (c *Client) FetchWindow(ctx context.Context, bounds geo.Bounds) ([]discovery.ProviderRecord, error) {
	for i, mirror := range c.mirrors {
		recs, err := c.fetchFromMirror(ctx, i, bounds)
		if err != nil {
			if ctx.Err() != nil {
				// The caller canceled the whole request; stop failing over.
				return nil, ctx.Err()
			}
			c.log.Warn("mirror query failed",
				zap.String("mirror", mirror),
				zap.Error(err))
			continue
		}
		if len(recs) == 0 {
			// Indistinguishable from replication lag; soft failure.
			c.log.Debug("mirror returned no usable records", zap.String("mirror", mirror))
			continue
		}
		return recs, nil
	}
	return nil, nil
}

func (c *Client) fetchFromMirror(ctx context.Context, i int, bounds geo.Bounds) ([]discovery.ProviderRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mirror := c.mirrors[i]
	query := overpassQuery(bounds, int(c.timeout.Seconds()))

	buildRequest := func() (*http.Request, error) {
		form := url.Values{}
		form.Set("data", query)

		req, err := http.NewRequest(http.MethodPost, mirror, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := doGuarded(attemptCtx, c.client, c.breakers[i], buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrapf(err, "decode response from %s", mirror)
	}

	recs := make([]discovery.ProviderRecord, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		rec, ok := normalizeElement(el)
		if !ok {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// overpassQuery builds the Overpass QL statement for healthcare facilities
// in the bounding box. The server-side [timeout:] is advisory; the real
// deadline is the attempt context.
func overpassQuery(b geo.Bounds, timeoutSec int) string {
	if timeoutSec <= 0 {
		timeoutSec = 25
	}
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)

	const amenities = "doctors|clinic|hospital|blood_bank|blood_donation"
	const healthcare = "doctor|clinic|hospital|blood_donation|blood_bank"

	return fmt.Sprintf(`[out:json][timeout:%d];
(
  node["amenity"~"%s"](%s);
  way["amenity"~"%s"](%s);
  node["healthcare"~"%s"](%s);
  way["healthcare"~"%s"](%s);
);
out center;`, timeoutSec, amenities, bbox, amenities, bbox, healthcare, bbox, healthcare, bbox)
}
