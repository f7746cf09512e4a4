package upstream

import (
	"fmt"
	"strings"

	"github.com/nearcare/provider-discovery/internal/discovery"
)

// overpassElement is one raw OSM element. Nodes carry lat/lon directly;
// ways and relations carry a computed center (requested via "out center").
type overpassElement struct {
	Type   string   `json:"type"`
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// addressTags are the address sub-components, in assembly order.
var addressTags = []string{
	"addr:housenumber",
	"addr:street",
	"addr:suburb",
	"addr:city",
	"addr:postcode",
}

// consumedTags are mapped onto dedicated record fields; everything else in
// the element's tags passes through as opaque metadata.
var consumedTags = map[string]bool{
	"name":                  true,
	"amenity":               true,
	"healthcare":            true,
	"healthcare:speciality": true,
	"phone":                 true,
	"contact:phone":         true,
	"website":               true,
	"contact:website":       true,
	"addr:housenumber":      true,
	"addr:street":           true,
	"addr:suburb":           true,
	"addr:city":             true,
	"addr:postcode":         true,
}

// normalizeElement converts a raw element into a ProviderRecord. Elements
// without resolvable coordinates are discarded silently.
func normalizeElement(el overpassElement) (discovery.ProviderRecord, bool) {
	lat, lon, ok := resolveCoordinates(el)
	if !ok {
		return discovery.ProviderRecord{}, false
	}

	category := deriveCategory(el.Tags)

	rec := discovery.ProviderRecord{
		ExternalID: fmt.Sprintf("%s/%d", el.Type, el.ID),
		Name:       el.Tags["name"],
		Category:   category,
		Specialty:  el.Tags["healthcare:speciality"],
		Address:    assembleAddress(el.Tags),
		Phone:      firstTag(el.Tags, "phone", "contact:phone"),
		Website:    firstTag(el.Tags, "website", "contact:website"),
		Latitude:   lat,
		Longitude:  lon,
	}

	if rec.Name == "" {
		rec.Name = fallbackName(category)
	}

	for k, v := range el.Tags {
		if consumedTags[k] {
			continue
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]string)
		}
		rec.Metadata[k] = v
	}

	return rec, true
}

func resolveCoordinates(el overpassElement) (float64, float64, bool) {
	if el.Lat != nil && el.Lon != nil {
		return *el.Lat, *el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

// deriveCategory maps OSM amenity/healthcare tags to a normalized category.
// Unknown but present tag values pass through as free text.
func deriveCategory(tags map[string]string) discovery.Category {
	amenity := tags["amenity"]
	healthcare := tags["healthcare"]

	switch amenity {
	case "doctors":
		return discovery.CategoryDoctor
	case "clinic":
		return discovery.CategoryClinic
	case "hospital":
		return discovery.CategoryHospital
	case "blood_bank", "blood_donation":
		return discovery.CategoryBloodBank
	}

	switch healthcare {
	case "doctor":
		return discovery.CategoryDoctor
	case "clinic":
		return discovery.CategoryClinic
	case "hospital":
		return discovery.CategoryHospital
	case "blood_donation", "blood_bank":
		return discovery.CategoryBloodBank
	}

	if healthcare != "" {
		return discovery.Category(healthcare)
	}
	if amenity != "" {
		return discovery.Category(amenity)
	}
	return discovery.CategoryClinic
}

// assembleAddress joins the address components that are present, in a fixed
// order, with ", ". Absent components are skipped, never padded.
func assembleAddress(tags map[string]string) string {
	parts := make([]string, 0, len(addressTags))
	for _, key := range addressTags {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func fallbackName(category discovery.Category) string {
	switch category {
	case discovery.CategoryDoctor:
		return "Unnamed doctor"
	case discovery.CategoryClinic:
		return "Unnamed clinic"
	case discovery.CategoryHospital:
		return "Unnamed hospital"
	case discovery.CategoryBloodBank:
		return "Unnamed blood bank"
	default:
		return "Unnamed healthcare facility"
	}
}
