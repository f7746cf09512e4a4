package geocode

import (
	"github.com/kelvins/geocoder"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Resolver turns a free-form address into coordinates so that nearby queries
// can be made without a GPS fix. Backed by the Google Geocoding API; only
// constructed when an API key is configured.
type Resolver struct {
	log *zap.Logger
}

// New configures the geocoder with the given API key.
func New(apiKey string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	// The library keys off package state; set it once here so the rest of
	// the process never touches it.
	geocoder.ApiKey = apiKey
	return &Resolver{log: log}
}

// Resolve geocodes a free-form address string.
func (r *Resolver) Resolve(address string) (lat, lon float64, err error) {
	if address == "" {
		return 0, 0, eris.New("geocode: empty address")
	}

	loc, err := geocoder.Geocoding(geocoder.Address{Street: address})
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode %q", address)
	}

	r.log.Debug("geocoded address",
		zap.String("address", address),
		zap.Float64("lat", loc.Latitude),
		zap.Float64("lon", loc.Longitude))

	return loc.Latitude, loc.Longitude, nil
}
