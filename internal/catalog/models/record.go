package models

import (
	"fmt"
	"time"
)

// Status tracks where a catalog record sits in the external classification
// pipeline.
type Status int16

const (
	StatusUnclassified Status = 0
	StatusClassified   Status = 1
	StatusRejected     Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusUnclassified:
		return "unclassified"
	case StatusClassified:
		return "classified"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status_%d", int16(s))
	}
}

// IsValid reports whether s is one of the known states.
func (s Status) IsValid() bool {
	return s >= StatusUnclassified && s <= StatusRejected
}

// Record is one catalog entry. At most one record exists per IdentityKey.
type Record struct {
	Key        IdentityKey
	Categories CategorySet
	Status     Status
	CreatedAt  time.Time
}

// NewUnclassifiedRecord builds the record written on first sighting.
func NewUnclassifiedRecord(key IdentityKey, now time.Time) *Record {
	return &Record{
		Key:        key,
		Categories: DefaultCategories(),
		Status:     StatusUnclassified,
		CreatedAt:  now,
	}
}

// ItemFailure describes one identity that could not be inserted for a reason
// other than a uniqueness conflict.
type ItemFailure struct {
	Key IdentityKey
	Err error
}

// InsertReport summarises a best-effort bulk insert.
type InsertReport struct {
	// Inserted lists identities that produced a new record.
	Inserted []IdentityKey
	// Conflicts counts identities another writer had already inserted.
	Conflicts int
	// Failures lists identities rejected for any other reason.
	Failures []ItemFailure
}
