// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and blank entries from a slice of string-typed
// values, trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]RegistrationID{" REG-1 ", "REG-2", "REG-1", ""})
//	// Returns: []RegistrationID{"REG-1", "REG-2"}
func DedupeAndTrim[S ~string](values []S) []S {
	if len(values) == 0 {
		return values
	}

	seen := make(map[S]struct{}, len(values))
	result := make([]S, 0, len(values))

	for _, v := range values {
		trimmed := S(strings.TrimSpace(string(v)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a comma separated flag or query value and dedupes it.
func SplitList[S ~string](raw string) []S {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]S, 0, len(parts))
	for _, p := range parts {
		values = append(values, S(p))
	}
	return DedupeAndTrim(values)
}
