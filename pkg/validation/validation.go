package validation

import "strings"

// IsNotEmpty checks if string is not empty after trimming
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidStationID reports whether an id can participate in a station set.
// Station sets are stored comma-joined, so ids must not contain the
// separator.
func IsValidStationID(id string) bool {
	trimmed := strings.TrimSpace(id)
	return trimmed != "" && !strings.Contains(trimmed, ",")
}

// NormalizeStationIDs trims every id and reports whether the whole list is
// usable. The list must be non-empty and every id valid.
func NormalizeStationIDs(ids []string) ([]string, bool) {
	if len(ids) == 0 {
		return nil, false
	}
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		if !IsValidStationID(id) {
			return nil, false
		}
		normalized = append(normalized, strings.TrimSpace(id))
	}
	return normalized, true
}

// IsValidRestaurantID reports whether a directory id is usable as a lookup
// key
func IsValidRestaurantID(id string) bool {
	trimmed := strings.TrimSpace(id)
	return trimmed != "" && !strings.ContainsAny(trimmed, ", \t\n")
}
