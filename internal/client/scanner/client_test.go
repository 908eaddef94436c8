package scanner_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanfilter/internal/catalog/handler"
	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/recorder"
	"chanfilter/internal/catalog/service"
	"chanfilter/internal/catalog/store"
	"chanfilter/internal/client/cache"
	"chanfilter/internal/client/policy"
	"chanfilter/internal/client/scanner"
	"chanfilter/pkg/platform/circuit"
)

func newCatalogServer(t *testing.T, st *store.InMemoryStore) (*httptest.Server, *recorder.Dispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := recorder.NewDispatcher(recorder.New(st), recorder.WithWorkers(1))
	router := chi.NewRouter()
	handler.New(service.New(st, dispatcher), recorder.New(st), st, logger).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, dispatcher
}

func TestClientResolveAgainstCatalog(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	require.NoError(t, st.Save(ctx, &models.Record{
		Key:        keyA,
		Categories: models.CategorySet{0, 2},
		Status:     models.StatusClassified,
	}))
	srv, dispatcher := newCatalogServer(t, st)

	client := scanner.NewClient(srv.URL + "/")
	got, err := client.Resolve(ctx, []models.IdentityKey{keyA, keyB, models.NewIdentityKey("C", "")})
	require.NoError(t, err)

	require.Len(t, got, 2, "partial identity dropped by the server")
	assert.Equal(t, scanner.Resolution{Key: keyA, Categories: models.CategorySet{0, 2}}, got[0])
	assert.Equal(t, scanner.Resolution{Key: keyB, Categories: models.CategorySet{-1}}, got[1])

	require.NoError(t, dispatcher.Close(ctx))
	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "unknown identity recorded by the server")
}

func TestClientRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	srv, _ := newCatalogServer(t, st)

	client := scanner.NewClient(srv.URL)
	require.NoError(t, client.Record(ctx, []models.IdentityKey{keyA, keyA, keyB}))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error"}`))
	}))
	defer srv.Close()

	_, err := scanner.NewClient(srv.URL).Resolve(context.Background(), []models.IdentityKey{keyA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal_error")
}

func TestClientSendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	_, err := scanner.NewClient(srv.URL).Resolve(context.Background(), []models.IdentityKey{keyA})
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestScannerFailsOpenWhenServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := cache.New(context.Background(), nil)
	require.NoError(t, err)
	collector := &scanner.Collector{}
	sc := scanner.New(
		scanner.NewClient(url, scanner.WithTimeout(time.Second)),
		c, scanner.StaticPolicy(policy.Default()), collector,
	)

	report := sc.Scan(context.Background(), []scanner.Item{{Ref: "r1", Key: keyA}})
	sc.Wait()

	assert.Equal(t, 1, report.Pending)
	assert.Empty(t, collector.Decisions())
	assert.Zero(t, c.Len())
}

func TestScannerEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	require.NoError(t, st.Save(ctx, &models.Record{
		Key:        keyA,
		Categories: models.CategorySet{0},
		Status:     models.StatusClassified,
	}))
	srv, _ := newCatalogServer(t, st)

	c, err := cache.New(ctx, nil)
	require.NoError(t, err)
	collector := &scanner.Collector{}
	sc := scanner.New(scanner.NewClient(srv.URL), c, scanner.StaticPolicy(policy.Default()), collector)

	sc.Scan(ctx, []scanner.Item{{Ref: "1", Key: keyA}, {Ref: "2", Key: keyB}})
	sc.Wait()

	decisions := collector.Decisions()
	require.Len(t, decisions, 2)
	for _, d := range decisions {
		switch d.Item.Key {
		case keyA:
			assert.False(t, d.Blocked)
		case keyB:
			assert.True(t, d.Blocked)
		}
	}
	assert.Equal(t, 2, c.Len())
}

func TestClientStopsCallingAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := scanner.NewClient(srv.URL, scanner.WithBreaker(
		circuit.New("catalog", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)),
	))
	ctx := context.Background()
	for range 2 {
		_, err := client.Resolve(ctx, []models.IdentityKey{keyA})
		require.Error(t, err)
	}
	_, err := client.Resolve(ctx, []models.IdentityKey{keyA})
	assert.ErrorIs(t, err, scanner.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}
