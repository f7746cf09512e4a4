package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nearcare/provider-discovery/internal/discovery"
	"github.com/nearcare/provider-discovery/internal/scheduler"
	"github.com/nearcare/provider-discovery/internal/upstream"
)

type AppConfig struct {
	Port string

	// Ordered Overpass mirror endpoints; the first healthy one wins.
	Mirrors []string

	// MirrorTimeout is the hard per-attempt deadline for one mirror query.
	MirrorTimeout time.Duration

	// CacheTTL is the freshness window for cached provider records.
	CacheTTL time.Duration

	// FreshnessPolicy decides when a cached window counts as stale.
	FreshnessPolicy discovery.FreshnessPolicy

	// SQLiteDSN locates the provider cache database.
	SQLiteDSN string

	// GeocoderAPIKey enables address-based queries when set.
	GeocoderAPIKey string

	// PrewarmWindows are warmed periodically; empty disables the scheduler.
	PrewarmWindows  []scheduler.Window
	PrewarmInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.SQLiteDSN = getenvDefault("SQLITE_DSN", "providers.db")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if mirrors := os.Getenv("OVERPASS_MIRRORS"); mirrors != "" {
		for _, m := range strings.Split(mirrors, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.Mirrors = append(cfg.Mirrors, m)
			}
		}
	}
	if len(cfg.Mirrors) == 0 {
		cfg.Mirrors = upstream.DefaultMirrors
	}

	var err error
	if cfg.MirrorTimeout, err = getenvDuration("MIRROR_TIMEOUT", "25s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "24h"); err != nil {
		return nil, err
	}

	switch policy := getenvDefault("FRESHNESS_POLICY", "any"); policy {
	case "any":
		cfg.FreshnessPolicy = discovery.FreshnessAny
	case "all":
		cfg.FreshnessPolicy = discovery.FreshnessAll
	default:
		return nil, fmt.Errorf("invalid FRESHNESS_POLICY %q: want any or all", policy)
	}

	if cfg.PrewarmWindows, err = parsePrewarmWindows(os.Getenv("PREWARM_WINDOWS")); err != nil {
		return nil, err
	}
	if cfg.PrewarmInterval, err = getenvDuration("PREWARM_INTERVAL", "6h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parsePrewarmWindows parses a comma-separated list of
// "lat:lon:radiusMeters[:category]" entries.
func parsePrewarmWindows(raw string) ([]scheduler.Window, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var windows []scheduler.Window
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid PREWARM_WINDOWS entry %q: want lat:lon:radius[:category]", entry)
		}

		lat, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in PREWARM_WINDOWS entry %q: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in PREWARM_WINDOWS entry %q: %w", entry, err)
		}
		radius, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid radius in PREWARM_WINDOWS entry %q: %w", entry, err)
		}

		w := scheduler.Window{Lat: lat, Lon: lon, RadiusMeters: radius}
		if len(parts) == 4 {
			w.Category = discovery.Category(parts[3])
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
