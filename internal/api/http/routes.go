package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/geocode"
)

var validate = validator.New()

const (
	defaultClinicalRadiusMeters  = 5000
	defaultBloodBankRadiusMeters = 10000
)

// RegisterRoutes wires the HTTP handlers into the Fiber app. The geocoder
// may be nil; address-based queries are rejected without it.
func RegisterRoutes(app *fiber.App, service *discovery.Service, geocoder *geocode.Resolver) {
	v1 := app.Group("/api/v1")

	v1.Get("/providers/nearby", nearbyHandler(service, geocoder, "", defaultClinicalRadiusMeters))
	v1.Get("/bloodbanks/nearby", nearbyHandler(service, geocoder, discovery.CategoryBloodBank, defaultBloodBankRadiusMeters))
}

func nearbyHandler(service *discovery.Service, geocoder *geocode.Resolver, pinned discovery.Category, defaultRadius float64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := bindNearbyQuery(c, geocoder, pinned, defaultRadius)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.FindNearby(c.UserContext(), q)
		if err != nil {
			if errors.Is(err, discovery.ErrInvalidQuery) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to discover providers")
		}

		return c.JSON(fiber.Map{
			"provenance": result.Provenance,
			"count":      len(result.Results),
			"results":    result.Results,
		})
	}
}

// nearbyParams holds the parsed query parameters for a nearby request.
type nearbyParams struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	Radius   float64 `validate:"gt=0,lte=100000"`
	Category string  `validate:"omitempty,oneof=doctor clinic hospital blood_bank"`
}

func bindNearbyQuery(c *fiber.Ctx, geocoder *geocode.Resolver, pinned discovery.Category, defaultRadius float64) (discovery.Query, error) {
	var p nearbyParams

	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	switch {
	case latStr != "" && lonStr != "":
		var err error
		if p.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
			return discovery.Query{}, errors.New("lat must be a number")
		}
		if p.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
			return discovery.Query{}, errors.New("lon must be a number")
		}
	case c.Query("address") != "":
		if geocoder == nil {
			return discovery.Query{}, errors.New("address queries are not enabled; pass lat and lon")
		}
		lat, lon, err := geocoder.Resolve(c.Query("address"))
		if err != nil {
			return discovery.Query{}, errors.New("could not resolve address to coordinates")
		}
		p.Lat, p.Lon = lat, lon
	default:
		return discovery.Query{}, errors.New("lat and lon query parameters are required")
	}

	p.Radius = defaultRadius
	if radiusStr := c.Query("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			return discovery.Query{}, errors.New("radius must be a number of meters")
		}
		p.Radius = radius
	}

	p.Category = string(pinned)
	if p.Category == "" {
		p.Category = c.Query("category")
	}

	if err := validate.Struct(p); err != nil {
		return discovery.Query{}, err
	}

	return discovery.Query{
		Lat:          p.Lat,
		Lon:          p.Lon,
		RadiusMeters: p.Radius,
		Category:     discovery.Category(p.Category),
	}, nil
}
