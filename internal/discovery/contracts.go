package discovery

import (
	"context"

	"github.com/nearcare/provider-discovery/internal/geo"
)

// Store is the contract the provider cache must satisfy. Any backend works
// as long as it supports an inclusive bounding-box range read and a keyed
// full-overwrite upsert, and tolerates degenerate boxes (min == max).
type Store interface {
	// FindInBoundingBox returns all records whose coordinates fall within
	// the bounds, optionally restricted to one category ("" = all).
	FindInBoundingBox(ctx context.Context, bounds geo.Bounds, category Category) ([]ProviderRecord, error)

	// Upsert creates or wholesale-replaces the record keyed by ExternalID
	// and stamps LastFetchedAt.
	Upsert(ctx context.Context, rec ProviderRecord) error

	// UpsertBatch applies Upsert to each record independently. One record's
	// write failure must not prevent the others from succeeding.
	UpsertBatch(ctx context.Context, recs []ProviderRecord) BatchResult
}

// Fetcher is the contract the upstream mirror client satisfies. An empty
// result with a nil error is a valid outcome meaning "nothing in range".
type Fetcher interface {
	FetchWindow(ctx context.Context, bounds geo.Bounds) ([]ProviderRecord, error)
}

// BatchResult reports per-item outcomes of an UpsertBatch.
type BatchResult struct {
	Saved  int
	Failed map[string]error // keyed by ExternalID
}

// AllFailed reports whether nothing in the batch was persisted.
func (r BatchResult) AllFailed() bool {
	return r.Saved == 0 && len(r.Failed) > 0
}
