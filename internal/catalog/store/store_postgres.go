package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/lib/pq"

	"chanfilter/internal/catalog/models"
	"chanfilter/pkg/requestcontext"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore persists the catalog in the channels table. It works with
// either registered driver ("pgx" or "postgres"); arrays are bound through
// pq.Array, which both accept.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// FindByIdentities fetches every record whose (handle, display_name) pair
// matches one of keys, in a single round trip.
func (s *PostgresStore) FindByIdentities(ctx context.Context, keys []models.IdentityKey) ([]*models.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	handles, names := splitKeys(keys)

	query := `
		SELECT c.handle, c.display_name, c.categories, c.status, c.created_at
		FROM channels c
		JOIN unnest($1::text[], $2::text[]) AS k(handle, display_name)
		  ON c.handle = k.handle AND c.display_name = k.display_name
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(handles), pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			rec    models.Record
			codes  pq.Int64Array
			status int16
		)
		if err := rows.Scan(&rec.Key.Handle, &rec.Key.DisplayName, &codes, &status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		rec.Categories, err = models.NewCategorySet(codes)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", rec.Key.Handle, err)
		}
		rec.Status = models.Status(status)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return out, nil
}

// InsertUnclassified inserts one default record per key without touching
// existing rows. The bulk statement lets the compound constraint absorb
// conflicts; if it fails outright, each key is retried on its own so that one
// bad row cannot sink the rest.
func (s *PostgresStore) InsertUnclassified(ctx context.Context, keys []models.IdentityKey) (*models.InsertReport, error) {
	if len(keys) == 0 {
		return &models.InsertReport{}, nil
	}

	report, err := s.insertBulk(ctx, keys)
	if err == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("insert channels: %w", err)
	}
	return s.insertEach(ctx, keys), nil
}

func (s *PostgresStore) insertBulk(ctx context.Context, keys []models.IdentityKey) (*models.InsertReport, error) {
	handles, names := splitKeys(keys)
	now := requestcontext.Now(ctx)

	query := `
		INSERT INTO channels (handle, display_name, categories, status, created_at)
		SELECT k.handle, k.display_name, $3::smallint[], $4::smallint, $5::timestamptz
		FROM unnest($1::text[], $2::text[]) AS k(handle, display_name)
		ON CONFLICT ON CONSTRAINT channels_identity_key DO NOTHING
		RETURNING handle, display_name
	`
	rows, err := s.db.QueryContext(ctx, query,
		pq.Array(handles),
		pq.Array(names),
		pq.Array(models.DefaultCategories().Int64s()),
		int16(models.StatusUnclassified),
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &models.InsertReport{}
	for rows.Next() {
		var key models.IdentityKey
		if err := rows.Scan(&key.Handle, &key.DisplayName); err != nil {
			return nil, err
		}
		report.Inserted = append(report.Inserted, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	report.Conflicts = len(keys) - len(report.Inserted)
	return report, nil
}

func (s *PostgresStore) insertEach(ctx context.Context, keys []models.IdentityKey) *models.InsertReport {
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO channels (handle, display_name, categories, status, created_at)
		VALUES ($1, $2, $3::smallint[], $4::smallint, $5::timestamptz)
	`
	defaults := pq.Array(models.DefaultCategories().Int64s())

	report := &models.InsertReport{}
	for _, key := range keys {
		_, err := s.db.ExecContext(ctx, query, key.Handle, key.DisplayName, defaults, int16(models.StatusUnclassified), now)
		switch {
		case err == nil:
			report.Inserted = append(report.Inserted, key)
		case IsUniqueViolation(err):
			report.Conflicts++
		default:
			report.Failures = append(report.Failures, models.ItemFailure{Key: key, Err: err})
		}
	}
	return report
}

// Count returns the number of catalog records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity for the health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func splitKeys(keys []models.IdentityKey) ([]string, []string) {
	handles := make([]string, len(keys))
	names := make([]string, len(keys))
	for i, k := range keys {
		handles[i] = k.Handle
		names[i] = k.DisplayName
	}
	return handles, names
}
