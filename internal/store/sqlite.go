package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/geo"
)

// SQLiteStore implements discovery.Store using modernc.org/sqlite. Records
// are keyed by external ID; lat/lon columns plus a composite index serve the
// bounding-box range reads.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	external_id     TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL,
	specialty       TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	lat             REAL NOT NULL,
	lon             REAL NOT NULL,
	metadata        TEXT NOT NULL DEFAULT '{}',
	last_fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_lat_lon ON providers(lat, lon);
CREATE INDEX IF NOT EXISTS idx_providers_category ON providers(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindInBoundingBox returns every record within the inclusive bounds,
// optionally restricted to one category. Degenerate boxes (min == max) are
// fine: BETWEEN handles them.
func (s *SQLiteStore) FindInBoundingBox(ctx context.Context, bounds geo.Bounds, category discovery.Category) ([]discovery.ProviderRecord, error) {
	query := `
		SELECT external_id, name, category, specialty, address, phone, website,
		       lat, lon, metadata, last_fetched_at
		FROM providers
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?`
	args := []any{bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon}

	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY external_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query bounding box")
	}
	defer rows.Close()

	var recs []discovery.ProviderRecord
	for rows.Next() {
		var rec discovery.ProviderRecord
		var metadataJSON string

		if err := rows.Scan(
			&rec.ExternalID, &rec.Name, &rec.Category, &rec.Specialty,
			&rec.Address, &rec.Phone, &rec.Website,
			&rec.Latitude, &rec.Longitude, &metadataJSON, &rec.LastFetchedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider row")
		}

		if metadataJSON != "" && metadataJSON != "{}" {
			if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode metadata for %s", rec.ExternalID)
			}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate provider rows")
	}
	return recs, nil
}

// Upsert creates or wholesale-replaces the record keyed by ExternalID
// (last-writer-wins, no merge) and stamps LastFetchedAt with the current
// time. Records missing coordinates are never persisted.
func (s *SQLiteStore) Upsert(ctx context.Context, rec discovery.ProviderRecord) error {
	if rec.ExternalID == "" {
		return eris.New("sqlite: record has no external ID")
	}
	if !finiteCoord(rec.Latitude) || !finiteCoord(rec.Longitude) {
		return eris.Errorf("sqlite: record %s is missing usable coordinates", rec.ExternalID)
	}

	metadataJSON := "{}"
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode metadata for %s", rec.ExternalID)
		}
		metadataJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers
			(external_id, name, category, specialty, address, phone, website, lat, lon, metadata, last_fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name            = excluded.name,
			category        = excluded.category,
			specialty       = excluded.specialty,
			address         = excluded.address,
			phone           = excluded.phone,
			website         = excluded.website,
			lat             = excluded.lat,
			lon             = excluded.lon,
			metadata        = excluded.metadata,
			last_fetched_at = excluded.last_fetched_at`,
		rec.ExternalID, rec.Name, string(rec.Category), rec.Specialty,
		rec.Address, rec.Phone, rec.Website,
		rec.Latitude, rec.Longitude, metadataJSON, s.now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert %s", rec.ExternalID)
}

// UpsertBatch applies Upsert to each record independently: one record's
// failure never blocks the others, and the outcome is reported per item.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, recs []discovery.ProviderRecord) discovery.BatchResult {
	result := discovery.BatchResult{}
	for _, rec := range recs {
		if err := s.Upsert(ctx, rec); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[rec.ExternalID] = err
			continue
		}
		result.Saved++
	}
	return result
}

func finiteCoord(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
