package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chanfilter/internal/catalog/models"
	dErrors "chanfilter/pkg/domain-errors"
)

const (
	fieldHandle      = "channel_id"
	fieldDisplayName = "channel_name"
	fieldCategories  = "channel_categories"
)

// item is one element of a request array. Fields other than the identity are
// echoed back untouched.
type item struct {
	fields map[string]json.RawMessage
	key    models.IdentityKey
}

// decodeItems parses a JSON array body. Elements that are not objects or lack
// a string handle and name are kept with a zero key, which downstream layers
// treat as malformed.
func decodeItems(body io.Reader) ([]item, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body")
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}

	items := make([]item, len(elems))
	for i, elem := range elems {
		items[i] = parseItem(elem)
	}
	return items, nil
}

func parseItem(elem json.RawMessage) item {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return item{}
	}
	return item{
		fields: fields,
		key:    models.NewIdentityKey(stringField(fields, fieldHandle), stringField(fields, fieldDisplayName)),
	}
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func keysOf(items []item) []models.IdentityKey {
	keys := make([]models.IdentityKey, len(items))
	for i, it := range items {
		keys[i] = it.key
	}
	return keys
}

// withCategories returns the original fields plus the category set.
func (it item) withCategories(categories models.CategorySet) map[string]any {
	out := make(map[string]any, len(it.fields)+1)
	for k, v := range it.fields {
		out[k] = v
	}
	out[fieldCategories] = categories.Ints()
	return out
}
