package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/recorder/mocks"
	"chanfilter/internal/catalog/store"
	dErrors "chanfilter/pkg/domain-errors"
)

func key(h, n string) models.IdentityKey {
	return models.NewIdentityKey(h, n)
}

type RecorderSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	publisher *mocks.MockDiscoveryPublisher
	recorder  *Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.publisher = mocks.NewMockDiscoveryPublisher(s.ctrl)
	s.recorder = New(s.store, WithPublisher(s.publisher))
}

func (s *RecorderSuite) TestDedupesAndDropsMalformed() {
	by, cz := key("B", "Y"), key("C", "Z")
	s.store.EXPECT().
		InsertUnclassified(gomock.Any(), []models.IdentityKey{by, cz}).
		Return(&models.InsertReport{Inserted: []models.IdentityKey{by, cz}}, nil)
	s.publisher.EXPECT().
		PublishDiscovered(gomock.Any(), []models.IdentityKey{by, cz}).
		Return(nil)

	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{
		by, key("", "nameless"), by, cz, key("handle-only", ""),
	})
	s.Require().NoError(err)
	s.Equal(&Result{Inserted: 2, Duplicates: 1}, res)
}

func (s *RecorderSuite) TestEmptyBatchIsNoop() {
	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{key("", "")})
	s.Require().NoError(err)
	s.Equal(&Result{}, res)
}

func (s *RecorderSuite) TestConflictsAndFailuresAreCounted() {
	a, b, c := key("A", "1"), key("B", "2"), key("C", "3")
	s.store.EXPECT().
		InsertUnclassified(gomock.Any(), gomock.Any()).
		Return(&models.InsertReport{
			Inserted:  []models.IdentityKey{a},
			Conflicts: 1,
			Failures:  []models.ItemFailure{{Key: c, Err: errors.New("value too long")}},
		}, nil)
	s.publisher.EXPECT().PublishDiscovered(gomock.Any(), []models.IdentityKey{a}).Return(nil)

	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{a, b, c})
	s.Require().NoError(err)
	s.Equal(1, res.Inserted)
	s.Equal(1, res.Conflicts)
	s.Equal(1, res.Failed)
}

func (s *RecorderSuite) TestNothingPublishedWhenNothingInserted() {
	s.store.EXPECT().
		InsertUnclassified(gomock.Any(), gomock.Any()).
		Return(&models.InsertReport{Conflicts: 1}, nil)

	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{key("A", "X")})
	s.Require().NoError(err)
	s.Equal(1, res.Conflicts)
}

func (s *RecorderSuite) TestPublishFailureIsNotPropagated() {
	a := key("A", "X")
	s.store.EXPECT().
		InsertUnclassified(gomock.Any(), gomock.Any()).
		Return(&models.InsertReport{Inserted: []models.IdentityKey{a}}, nil)
	s.publisher.EXPECT().PublishDiscovered(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{a})
	s.Require().NoError(err)
	s.Equal(1, res.Inserted)
}

func (s *RecorderSuite) TestStoreErrorIsInternal() {
	s.store.EXPECT().
		InsertUnclassified(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))

	res, err := s.recorder.Record(context.Background(), []models.IdentityKey{key("A", "X")})
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// Two passes racing on the same identity must leave exactly one record.
func TestConcurrentRecordKeepsOneRecord(t *testing.T) {
	st := store.NewInMemoryStore()
	rec := New(st)
	cz := key("C", "Z")

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := rec.Record(context.Background(), []models.IdentityKey{cz})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, 1, results[0].Inserted+results[1].Inserted)
	assert.Equal(t, 1, results[0].Conflicts+results[1].Conflicts)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := st.FindByIdentities(context.Background(), []models.IdentityKey{cz})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StatusUnclassified, recs[0].Status)
	assert.Equal(t, models.CategorySet{models.CategoryUnclassified}, recs[0].Categories)
}

// Existing classified records are never overwritten by a recording pass.
func TestRecordDoesNotOverwriteClassified(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	ax := key("A", "X")
	require.NoError(t, st.Save(ctx, &models.Record{Key: ax, Categories: models.CategorySet{3}, Status: models.StatusRejected}))

	res, err := New(st).Record(ctx, []models.IdentityKey{ax})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conflicts)

	recs, err := st.FindByIdentities(ctx, []models.IdentityKey{ax})
	require.NoError(t, err)
	assert.Equal(t, models.CategorySet{3}, recs[0].Categories)
}
