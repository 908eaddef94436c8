// Package policy decides whether a channel is hidden from the user based on
// its category set and the user's allowlist.
package policy

import (
	"chanfilter/internal/catalog/models"
)

// ShouldBlock reports whether a channel with the given categories must be
// hidden. An empty category set is always blocked; otherwise the channel is
// blocked unless at least one of its categories is allowed. The unclassified
// code -1 is an ordinary code: it is allowed only if listed.
func ShouldBlock(categories models.CategorySet, allowed []models.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		for _, a := range allowed {
			if c == a {
				return false
			}
		}
	}
	return true
}

// Policy is the user's filter configuration.
type Policy struct {
	Enabled bool
	Allowed models.CategorySet
}

// Default allows only computer science content.
func Default() Policy {
	return Policy{Enabled: true, Allowed: models.CategorySet{models.CategoryComputerScience}}
}

// Decide reports whether the channel should be hidden. A disabled policy
// never hides anything.
func (p Policy) Decide(categories models.CategorySet) bool {
	if !p.Enabled {
		return false
	}
	return ShouldBlock(categories, p.Allowed)
}
