package store

import (
	"context"
	"sync"
	"time"

	"chanfilter/internal/catalog/models"
	"chanfilter/pkg/requestcontext"
)

// InMemoryStore keeps the catalog in a map keyed by the compound identity.
// The map key plays the role of the database's compound unique constraint.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.IdentityKey]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.IdentityKey]*models.Record)}
}

// FindByIdentities returns the records matching any of keys, in no particular order.
func (s *InMemoryStore) FindByIdentities(_ context.Context, keys []models.IdentityKey) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(keys))
	for _, key := range keys {
		if rec, ok := s.records[key]; ok {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// InsertUnclassified inserts one default record per key. Each key is handled
// independently; keys already present count as conflicts.
func (s *InMemoryStore) InsertUnclassified(ctx context.Context, keys []models.IdentityKey) (*models.InsertReport, error) {
	now := requestcontext.Now(ctx)
	report := &models.InsertReport{}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if err := s.insertLocked(models.NewUnclassifiedRecord(key, now)); err != nil {
			if IsUniqueViolation(err) {
				report.Conflicts++
				continue
			}
			report.Failures = append(report.Failures, models.ItemFailure{Key: key, Err: err})
			continue
		}
		report.Inserted = append(report.Inserted, key)
	}
	return report, nil
}

// Save upserts a record. It stands in for the external classifier in tests and
// local fixtures.
func (s *InMemoryStore) Save(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records[rec.Key] = cloneRecord(rec)
	return nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Ping satisfies the health check contract.
func (s *InMemoryStore) Ping(_ context.Context) error {
	return nil
}

// Must be called while holding s.mu.
func (s *InMemoryStore) insertLocked(rec *models.Record) error {
	if _, exists := s.records[rec.Key]; exists {
		return ErrConflict
	}
	s.records[rec.Key] = rec
	return nil
}

func cloneRecord(rec *models.Record) *models.Record {
	c := *rec
	c.Categories = rec.Categories.Clone()
	return &c
}
