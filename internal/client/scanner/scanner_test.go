package scanner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/client/cache"
	"chanfilter/internal/client/policy"
	"chanfilter/internal/client/scanner"
	"chanfilter/internal/client/scanner/mocks"
)

type ScannerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	resolver  *mocks.MockResolver
	cache     *cache.TTLCache
	collector *scanner.Collector
	scanner   *scanner.Scanner
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	c, err := cache.New(context.Background(), nil)
	s.Require().NoError(err)
	s.cache = c
	s.collector = &scanner.Collector{}
	s.scanner = scanner.New(s.resolver, s.cache, scanner.StaticPolicy(policy.Default()), s.collector)
}

func (s *ScannerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ScannerSuite) byRef() map[string]scanner.Decision {
	out := map[string]scanner.Decision{}
	for _, d := range s.collector.Decisions() {
		out[d.Item.Ref] = d
	}
	return out
}

var (
	keyA = models.NewIdentityKey("A", "X")
	keyB = models.NewIdentityKey("B", "Y")
)

func (s *ScannerSuite) TestCacheHitAppliedImmediately() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, keyA, models.CategorySet{0}))

	report := s.scanner.Scan(ctx, []scanner.Item{{Ref: "r1", Key: keyA}})

	s.Equal(1, report.Cached)
	s.Zero(report.Requests)
	decisions := s.collector.Decisions()
	s.Require().Len(decisions, 1)
	s.Equal(scanner.SourceCache, decisions[0].Source)
	s.False(decisions[0].Blocked)
}

func (s *ScannerSuite) TestPendingItemsResolvedOnce() {
	ctx := context.Background()
	s.resolver.EXPECT().
		Resolve(gomock.Any(), []models.IdentityKey{keyA, keyB}).
		Return([]scanner.Resolution{
			{Key: keyA, Categories: models.CategorySet{0}},
			{Key: keyB, Categories: models.CategorySet{-1}},
		}, nil).
		Times(1)

	report := s.scanner.Scan(ctx, []scanner.Item{
		{Ref: "r1", Key: keyA},
		{Ref: "r2", Key: keyA},
		{Ref: "r3", Key: keyB},
	})
	s.scanner.Wait()

	s.Equal(3, report.Pending)
	s.Equal(1, report.Requests)
	got := s.byRef()
	s.Require().Len(got, 3)
	s.False(got["r1"].Blocked)
	s.False(got["r2"].Blocked)
	s.True(got["r3"].Blocked, "unclassified is blocked unless allowed")
	s.Equal(scanner.SourceServer, got["r3"].Source)

	cats, ok := s.cache.Get(keyB)
	s.True(ok)
	s.Equal(models.CategorySet{-1}, cats)
}

func (s *ScannerSuite) TestSeenItemsSkipped() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, keyA, models.CategorySet{0}))
	items := []scanner.Item{{Ref: "r1", Key: keyA}}

	s.scanner.Scan(ctx, items)
	report := s.scanner.Scan(ctx, items)

	s.Equal(1, report.Skipped)
	s.Len(s.collector.Decisions(), 1)
}

func (s *ScannerSuite) TestEmptyItemsDropped() {
	report := s.scanner.Scan(context.Background(), []scanner.Item{{Ref: "r1"}})
	s.Equal(1, report.Dropped)
	s.Zero(report.Pending)
}

func (s *ScannerSuite) TestNetworkFailureFailsOpen() {
	ctx := context.Background()
	gomock.InOrder(
		s.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")),
		s.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return([]scanner.Resolution{
			{Key: keyA, Categories: models.CategorySet{3}},
		}, nil),
	)
	items := []scanner.Item{{Ref: "r1", Key: keyA}}

	s.scanner.Scan(ctx, items)
	s.scanner.Wait()
	s.Empty(s.collector.Decisions(), "nothing hidden on failure")
	s.Zero(s.cache.Len(), "nothing cached on failure")

	report := s.scanner.Scan(ctx, items)
	s.scanner.Wait()
	s.Equal(1, report.Pending, "failed items are retried")
	s.Len(s.collector.Decisions(), 1)
}

func (s *ScannerSuite) TestPartialIdentityLeftVisible() {
	ctx := context.Background()
	partial := models.NewIdentityKey("@only-handle", "")
	s.resolver.EXPECT().
		Resolve(gomock.Any(), []models.IdentityKey{partial}).
		Return([]scanner.Resolution{}, nil)

	s.scanner.Scan(ctx, []scanner.Item{{Ref: "r1", Key: partial}})
	s.scanner.Wait()

	s.Empty(s.collector.Decisions())
	s.Zero(s.cache.Len())
}

func (s *ScannerSuite) TestPolicyAppliesToCachedCategories() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, keyA, models.CategorySet{5}))

	strict := scanner.New(s.resolver, s.cache, scanner.StaticPolicy(policy.Default()), s.collector)
	strict.Scan(ctx, []scanner.Item{{Ref: "strict", Key: keyA}})

	relaxed := scanner.New(s.resolver, s.cache,
		scanner.StaticPolicy(policy.Policy{Enabled: true, Allowed: models.CategorySet{0, 5}}), s.collector)
	relaxed.Scan(ctx, []scanner.Item{{Ref: "relaxed", Key: keyA}})

	off := scanner.New(s.resolver, s.cache, scanner.StaticPolicy(policy.Policy{Enabled: false}), s.collector)
	off.Scan(ctx, []scanner.Item{{Ref: "off", Key: keyA}})

	got := s.byRef()
	s.True(got["strict"].Blocked)
	s.False(got["relaxed"].Blocked)
	s.False(got["off"].Blocked)
}

func (s *ScannerSuite) TestApplierReceivesCopies() {
	ctx := context.Background()
	applier := mocks.NewMockApplier(s.ctrl)
	s.Require().NoError(s.cache.Put(ctx, keyA, models.CategorySet{0}))
	sc := scanner.New(s.resolver, s.cache, scanner.StaticPolicy(policy.Default()), applier)

	applier.EXPECT().Apply(gomock.Any(), gomock.Any()).Do(func(_ context.Context, d scanner.Decision) {
		d.Categories[0] = 9
	})
	sc.Scan(ctx, []scanner.Item{{Ref: "r1", Key: keyA}})

	cats, ok := s.cache.Get(keyA)
	s.True(ok)
	s.Equal(models.CategorySet{0}, cats)
}
