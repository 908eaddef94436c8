//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/store"
	"chanfilter/internal/platform/config"
	"chanfilter/internal/platform/postgres"
	"chanfilter/pkg/testutil/containers"
)

// Both drivers must work against the same schema, including array binding.
func TestOpenWithBothDrivers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx, pg.DB))

	for _, driver := range []string{config.DriverPgx, config.DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			require.NoError(t, pg.TruncateTables(ctx, "channels"))

			db, err := postgres.Open(ctx, config.DatabaseConfig{URL: pg.DSN, Driver: driver, MaxOpenConns: 4})
			require.NoError(t, err)
			defer db.Close()

			st := store.NewPostgres(db)
			key := models.NewIdentityKey("@"+driver, "Driver Check")
			report, err := st.InsertUnclassified(ctx, []models.IdentityKey{key})
			require.NoError(t, err)
			assert.Len(t, report.Inserted, 1)

			recs, err := st.FindByIdentities(ctx, []models.IdentityKey{key})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, models.CategorySet{models.CategoryUnclassified}, recs[0].Categories)
		})
	}
}

func TestOpenFailsOnUnreachableDatabase(t *testing.T) {
	_, err := postgres.Open(context.Background(), config.DatabaseConfig{
		URL:    "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		Driver: config.DriverPgx,
	})
	assert.Error(t, err)
}
