package discovery

import "strings"

// FilterByCategory keeps records matching the requested category. Kept as a
// named step, separate from orchestration, so the matching rule can change
// without touching the coordinator.
//
// A record matches on its structured category, or — for blood banks — on its
// name containing "blood". Upstream tagging for blood banks is inconsistent
// enough that the name heuristic stays as a safety net.
func FilterByCategory(recs []ProviderRecord, category Category) []ProviderRecord {
	if category == "" {
		return recs
	}

	filtered := make([]ProviderRecord, 0, len(recs))
	for _, r := range recs {
		if matchesCategory(r, category) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func matchesCategory(r ProviderRecord, category Category) bool {
	if r.Category == category {
		return true
	}
	if category == CategoryBloodBank {
		return hasAny(strings.ToLower(r.Name), "blood")
	}
	return false
}

// hasAny returns true if s contains any of the substrings.
func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
