package models

import (
	"strings"

	"chanfilter/pkg/platform/dedupe"
)

// keySeparator joins the two identity fields in the normalized string form.
// It is the ASCII unit separator, which cannot appear in a rendered handle or
// display name.
const keySeparator = "\x1f"

// IdentityKey is the compound (handle, display name) identity of a channel.
// Equality is exact and case-sensitive on both fields jointly; neither field is
// ever used alone as a lookup key.
type IdentityKey struct {
	Handle      string
	DisplayName string
}

// NewIdentityKey builds a key from its two fields.
func NewIdentityKey(handle, displayName string) IdentityKey {
	return IdentityKey{Handle: handle, DisplayName: displayName}
}

// Valid reports whether both fields are present. Only valid keys take part in
// catalog lookups and inserts.
func (k IdentityKey) Valid() bool {
	return k.Handle != "" && k.DisplayName != ""
}

// Empty reports whether both fields are missing.
func (k IdentityKey) Empty() bool {
	return k.Handle == "" && k.DisplayName == ""
}

// String returns the normalized identity string used as a persisted cache key.
func (k IdentityKey) String() string {
	return k.Handle + keySeparator + k.DisplayName
}

// ParseIdentityKey reverses String.
func ParseIdentityKey(s string) (IdentityKey, bool) {
	handle, name, ok := strings.Cut(s, keySeparator)
	if !ok {
		return IdentityKey{}, false
	}
	return IdentityKey{Handle: handle, DisplayName: name}, true
}

// DedupeIdentities collapses keys to their first occurrence, dropping keys with
// neither field set. It returns the surviving keys in first-occurrence order and
// the number of duplicates discarded.
func DedupeIdentities(keys []IdentityKey) ([]IdentityKey, int) {
	return dedupe.ByKey(keys, func(k IdentityKey) (IdentityKey, bool) {
		return k, !k.Empty()
	})
}
