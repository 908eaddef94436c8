//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/store"
	"chanfilter/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.Migrate(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "channels"))
}

func (s *PostgresStoreSuite) classify(key models.IdentityKey, categories ...int) {
	codes := make([]int64, len(categories))
	for i, c := range categories {
		codes[i] = int64(c)
	}
	_, err := s.postgres.DB.ExecContext(context.Background(),
		`INSERT INTO channels (handle, display_name, categories, status) VALUES ($1, $2, $3::smallint[], 2)`,
		key.Handle, key.DisplayName, pq.Array(codes))
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	s.NoError(store.Migrate(context.Background(), s.postgres.DB))
}

func (s *PostgresStoreSuite) TestFindByIdentitiesMatchesCompoundKey() {
	ctx := context.Background()
	s.classify(models.NewIdentityKey("A", "X"), 3)
	s.classify(models.NewIdentityKey("A", "Y"), 4, 5)

	recs, err := s.store.FindByIdentities(ctx, []models.IdentityKey{
		models.NewIdentityKey("A", "X"),
		models.NewIdentityKey("B", "X"),
		models.NewIdentityKey("A", "Y"),
	})
	s.Require().NoError(err)
	s.Require().Len(recs, 2)

	byKey := map[models.IdentityKey]models.CategorySet{}
	for _, r := range recs {
		byKey[r.Key] = r.Categories
	}
	s.Equal(models.CategorySet{3}, byKey[models.NewIdentityKey("A", "X")])
	s.Equal(models.CategorySet{4, 5}, byKey[models.NewIdentityKey("A", "Y")])
}

func (s *PostgresStoreSuite) TestInsertUnclassifiedSkipsExisting() {
	ctx := context.Background()
	s.classify(models.NewIdentityKey("A", "X"), 3)

	report, err := s.store.InsertUnclassified(ctx, []models.IdentityKey{
		models.NewIdentityKey("A", "X"),
		models.NewIdentityKey("B", "Y"),
	})
	s.Require().NoError(err)
	s.Equal([]models.IdentityKey{models.NewIdentityKey("B", "Y")}, report.Inserted)
	s.Equal(1, report.Conflicts)

	recs, err := s.store.FindByIdentities(ctx, []models.IdentityKey{models.NewIdentityKey("A", "X")})
	s.Require().NoError(err)
	s.Equal(models.CategorySet{3}, recs[0].Categories, "existing record must not be overwritten")
}

// Repeated handles and repeated names under different pairings are legitimate
// and must not be rejected.
func (s *PostgresStoreSuite) TestCompoundUniquenessAllowsSharedFields() {
	ctx := context.Background()
	report, err := s.store.InsertUnclassified(ctx, []models.IdentityKey{
		models.NewIdentityKey("@shared", "First"),
		models.NewIdentityKey("@shared", "Second"),
		models.NewIdentityKey("@other", "First"),
	})
	s.Require().NoError(err)
	s.Len(report.Inserted, 3)
	s.Zero(report.Conflicts)
}

// A row that violates a non-unique constraint must not prevent the rest of the
// batch from landing.
func (s *PostgresStoreSuite) TestBadRowDoesNotSinkBatch() {
	ctx := context.Background()
	report, err := s.store.InsertUnclassified(ctx, []models.IdentityKey{
		models.NewIdentityKey("good-1", "One"),
		{Handle: "", DisplayName: "violates check"},
		models.NewIdentityKey("good-2", "Two"),
	})
	s.Require().NoError(err)
	s.Len(report.Inserted, 2)
	s.Require().Len(report.Failures, 1)
	s.False(store.IsUniqueViolation(report.Failures[0].Err))

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *PostgresStoreSuite) TestConcurrentInsertSameIdentity() {
	ctx := context.Background()
	key := models.NewIdentityKey("C", "Z")
	const goroutines = 25

	var wg sync.WaitGroup
	var inserted, conflicts atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := s.store.InsertUnclassified(ctx, []models.IdentityKey{key})
			if err != nil {
				return
			}
			inserted.Add(int32(len(report.Inserted)))
			conflicts.Add(int32(report.Conflicts))
		}()
	}
	wg.Wait()

	s.Equal(int32(1), inserted.Load(), "exactly one insert should win")
	s.Equal(int32(goroutines-1), conflicts.Load())

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}
