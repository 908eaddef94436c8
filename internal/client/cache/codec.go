package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"chanfilter/internal/catalog/models"
)

// storedEntry is the persisted value. The storage key is IdentityKey.String().
type storedEntry struct {
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Categories  []int64   `json:"categories"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func encodeEntry(e Entry) ([]byte, error) {
	return json.Marshal(storedEntry{
		Handle:      e.Key.Handle,
		DisplayName: e.Key.DisplayName,
		Categories:  e.Categories.Int64s(),
		RecordedAt:  e.RecordedAt.UTC(),
	})
}

func decodeEntry(data []byte) (Entry, error) {
	var s storedEntry
	if err := json.Unmarshal(data, &s); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	cats, err := models.NewCategorySet(s.Categories)
	if err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return Entry{
		Key:        models.NewIdentityKey(s.Handle, s.DisplayName),
		Categories: cats,
		RecordedAt: s.RecordedAt,
	}, nil
}
