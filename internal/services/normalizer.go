package services

import (
	"fmt"
	"math"
	"strings"
)

// The identifier normalizer cleans raw SKU/barcode/pack-name input before any
// database round trip. Duplicate detection here is request-local: the same
// value typed twice in one request is rejected without touching the
// organization-wide uniqueness checks.

// NormalizeIdentifier trims surrounding whitespace from one identifier.
func NormalizeIdentifier(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeIdentifierSet trims every value, drops empties, and fails with
// dupErr when the same value appears twice within the request.
func NormalizeIdentifierSet(raw []string, dupErr error) ([]string, error) {
	normalized := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if seen[value] {
			return nil, fmt.Errorf("%w: '%s'", dupErr, value)
		}
		seen[value] = true
		normalized = append(normalized, value)
	}
	return normalized, nil
}

// NormalizePositiveInt truncates a numeric field to an integer and rejects
// non-finite or non-positive values with the caller's typed error.
func NormalizePositiveInt(raw float64, invalidErr error) (int, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: value is not finite", invalidErr)
	}
	truncated := int(raw)
	if truncated <= 0 {
		return 0, fmt.Errorf("%w: value must be a positive integer, got %v", invalidErr, raw)
	}
	return truncated, nil
}

// NormalizeFiniteNonNegative validates a price/cost field: finite and >= 0.
func NormalizeFiniteNonNegative(raw float64, invalidErr error) (float64, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: value is not finite", invalidErr)
	}
	if raw < 0 {
		return 0, fmt.Errorf("%w: value must not be negative, got %v", invalidErr, raw)
	}
	return raw, nil
}
