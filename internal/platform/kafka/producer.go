package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"securyflex/internal/platform/config"
)

// Producer wraps a franz-go client for publishing audit events.
// Returns nil from New when brokers are not configured.
type Producer struct {
	client *kgo.Client
}

// New creates a Kafka producer and ensures the given topics exist.
func New(cfg config.KafkaConfig, topics ...string) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(0),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopics(client, topics); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client}, nil
}

// ensureTopics creates missing topics so first-run deployments do not drop
// audit events while waiting for out-of-band topic provisioning.
func ensureTopics(client *kgo.Client, topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	admin := kadm.NewClient(client)
	ctx := context.Background()

	existing, err := admin.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	var missing []string
	for _, topic := range topics {
		if !existing.Has(topic) {
			missing = append(missing, topic)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if _, err := admin.CreateTopics(ctx, 3, 1, nil, missing...); err != nil {
		return fmt.Errorf("create kafka topics: %w", err)
	}
	return nil
}

// Publish produces a single record and waits for broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
