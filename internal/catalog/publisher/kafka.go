package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"chanfilter/internal/catalog/models"
	"chanfilter/pkg/requestcontext"
)

// DefaultTopic receives one event per newly recorded identity.
const DefaultTopic = "chanfilter.channels.discovered"

// DiscoveredEvent is the payload written to the discovery topic.
type DiscoveredEvent struct {
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Kafka publishes discovery events with a franz-go client.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(k *Kafka)

func WithLogger(logger *slog.Logger) Option {
	return func(k *Kafka) {
		k.logger = logger
	}
}

func WithTopic(topic string) Option {
	return func(k *Kafka) {
		if topic != "" {
			k.topic = topic
		}
	}
}

// NewKafka connects to the given seed brokers. The connection is lazy; use
// EnsureTopic to verify the cluster is reachable.
func NewKafka(brokers []string, opts ...Option) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	k := &Kafka{topic: DefaultTopic}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(k.topic),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	k.client = client
	return k, nil
}

// Topic returns the topic events are written to.
func (k *Kafka) Topic() string {
	return k.topic
}

// EnsureTopic creates the discovery topic if it does not exist yet.
func (k *Kafka) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(k.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", k.topic, resp.Err)
	}
	return nil
}

// PublishDiscovered writes one event per identity and waits for the brokers
// to acknowledge them.
func (k *Kafka) PublishDiscovered(ctx context.Context, keys []models.IdentityKey) error {
	if len(keys) == 0 {
		return nil
	}
	records, err := buildRecords(k.topic, keys, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce discovery events: %w", err)
	}
	k.logger.DebugContext(ctx, "published discovery events",
		"topic", k.topic,
		"count", len(records),
	)
	return nil
}

// Close flushes buffered records and closes the client.
func (k *Kafka) Close(ctx context.Context) {
	if err := k.client.Flush(ctx); err != nil {
		k.logger.Warn("kafka flush failed on close", "error", err)
	}
	k.client.Close()
}

func buildRecords(topic string, keys []models.IdentityKey, now time.Time) ([]*kgo.Record, error) {
	records := make([]*kgo.Record, 0, len(keys))
	for _, key := range keys {
		payload, err := json.Marshal(DiscoveredEvent{
			Handle:       key.Handle,
			DisplayName:  key.DisplayName,
			DiscoveredAt: now.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("encode discovery event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: topic,
			Key:   []byte(key.String()),
			Value: payload,
		})
	}
	return records, nil
}
