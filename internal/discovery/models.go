package discovery

import (
	"time"
)

// Category is a normalized facility category. Upstream tagging is messy, so
// values outside the known constants are allowed and carried as-is.
type Category string

const (
	CategoryDoctor    Category = "doctor"
	CategoryClinic    Category = "clinic"
	CategoryHospital  Category = "hospital"
	CategoryBloodBank Category = "blood_bank"
)

// KnownCategories lists the categories the API accepts as filters.
var KnownCategories = []Category{CategoryDoctor, CategoryClinic, CategoryHospital, CategoryBloodBank}

// Provenance says where a result set came from.
type Provenance string

const (
	ProvenanceCache Provenance = "cache"
	ProvenanceLive  Provenance = "live"
)

// ProviderRecord is one physical healthcare facility. ExternalID is the
// upstream element identifier ("<kind>/<numericId>") and the primary key for
// upserts; a write with an existing ExternalID replaces the record wholesale.
type ProviderRecord struct {
	ExternalID string   `json:"externalId"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Specialty  string   `json:"specialty,omitempty"`
	Address    string   `json:"address,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Website    string   `json:"website,omitempty"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`

	// Metadata carries auxiliary upstream attributes (opening hours,
	// wheelchair access, emergency flag). Opaque pass-through.
	Metadata map[string]string `json:"metadata,omitempty"`

	// LastFetchedAt is stamped by the store on every write and defines
	// cache freshness.
	LastFetchedAt time.Time `json:"lastFetchedAt"`
}

// RankedProvider is a ProviderRecord with its distance from the query center.
type RankedProvider struct {
	ProviderRecord
	DistanceKm float64 `json:"distanceKm"`
}

// Result is the answer to a nearby query.
type Result struct {
	Provenance Provenance       `json:"provenance"`
	Results    []RankedProvider `json:"results"`
}
