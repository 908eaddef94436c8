//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/catalog/publisher"
	"chanfilter/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda  *containers.RedpandaContainer
	publisher *publisher.Kafka
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())

	pub, err := publisher.NewKafka(s.redpanda.Brokers, publisher.WithTopic("discovered-test"))
	s.Require().NoError(err)
	s.publisher = pub

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close(context.Background())
	}
}

func (s *KafkaPublisherSuite) TestEnsureTopicIsIdempotent() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.NoError(s.publisher.EnsureTopic(ctx, 1, 1))
}

func (s *KafkaPublisherSuite) TestPublishDiscovered() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keys := []models.IdentityKey{
		models.NewIdentityKey("@alpha", "Alpha"),
		models.NewIdentityKey("@beta", "Beta"),
	}
	s.Require().NoError(s.publisher.PublishDiscovered(ctx, keys))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.publisher.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	got := map[string]publisher.DiscoveredEvent{}
	for len(got) < len(keys) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "timed out waiting for discovery events")
		fetches.EachRecord(func(r *kgo.Record) {
			var event publisher.DiscoveredEvent
			s.Require().NoError(json.Unmarshal(r.Value, &event))
			got[string(r.Key)] = event
		})
	}

	for _, k := range keys {
		event, ok := got[k.String()]
		s.Require().True(ok, "missing event for %s", k.Handle)
		s.Equal(k.DisplayName, event.DisplayName)
	}
}
