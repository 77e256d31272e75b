// Package strings provides string slice helpers for configuration parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empties and repeats. Order is
// preserved.
//
// Example:
//
//	DedupeAndTrim([]string{" 10.0.0.0/8 ", "", "10.0.0.0/8", "172.16.0.0/12"})
//	// Returns: []string{"10.0.0.0/8", "172.16.0.0/12"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
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

// SplitList splits a comma separated value and applies DedupeAndTrim.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(s, ","))
}
