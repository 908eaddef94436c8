package testutil

import (
	"context"
	"time"

	"chanfilter/pkg/requestcontext"
)

// ContextAt returns a background context whose request time is t, for code
// that stamps records with requestcontext.Now outside the HTTP middleware.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
