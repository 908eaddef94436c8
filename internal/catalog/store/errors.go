package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"chanfilter/pkg/platform/sentinel"
)

// uniqueViolation is the SQLSTATE Postgres reports for a unique constraint.
const uniqueViolation = "23505"

// ErrConflict is returned for writes rejected by the compound identity constraint.
var ErrConflict = sentinel.ErrConflict

// IsUniqueViolation reports whether err was raised by a uniqueness constraint.
// Both supported drivers are recognised, as is the in-memory store's sentinel.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
