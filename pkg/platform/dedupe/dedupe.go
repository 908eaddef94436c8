// Package dedupe provides order-preserving, first-occurrence-wins deduplication.
package dedupe

import (
	"strings"
)

// ByKey collapses items to their first occurrence by key, preserving the order
// of first occurrences. Items for which key reports false are dropped and are
// not counted as duplicates. The second return value is the number of later
// occurrences that were discarded.
//
// Example:
//
//	out, dropped := ByKey([]string{"a", "b", "a", ""}, func(s string) (string, bool) {
//		return s, s != ""
//	})
//	// out: []string{"a", "b"}, dropped: 1
func ByKey[T any, K comparable](items []T, key func(T) (K, bool)) ([]T, int) {
	if len(items) == 0 {
		return nil, 0
	}

	seen := make(map[K]struct{}, len(items))
	result := make([]T, 0, len(items))
	dropped := 0

	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}

	return result, dropped
}

// Strings removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved.
//
// Example:
//
//	Strings([]string{"  kafka-1:9092 ", "kafka-2:9092", "kafka-1:9092", ""})
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func Strings(values []string) []string {
	out, _ := ByKey(values, func(v string) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	})
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}
