package services

import "strings"

// MergeChangeset compares an existing field map against candidate values
// from a fresh extraction and returns only the keys that actually changed
// non-trivially: the candidate is non-empty (after sentinel normalization)
// and differs from what is already stored. Callers apply the changeset
// atomically instead of overwriting fields one by one.
func MergeChangeset(existing, candidate map[string]string) map[string]string {
	changes := map[string]string{}
	for key, newVal := range candidate {
		trimmed := strings.TrimSpace(newVal)
		if NormalizeValue(trimmed) == "" {
			continue
		}
		if strings.TrimSpace(existing[key]) == trimmed {
			continue
		}
		changes[key] = trimmed
	}
	return changes
}
