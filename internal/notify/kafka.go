package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"reimbly/internal/approval"
)

// KafkaNotifier publishes case notifications to a Kafka topic. Records are
// keyed by case ID so all events for one case land on the same partition and
// stay ordered.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier connects a producer to the given brokers. The topic must
// already exist or the cluster must allow auto-creation.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RecordDeliveryTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	return &KafkaNotifier{client: client, topic: topic, logger: logger}, nil
}

// envelope is the wire shape published per notification.
type envelope struct {
	Event     approval.NotifyEvent `json:"event"`
	Subject   string               `json:"subject"`
	Body      string               `json:"body"`
	Case      approval.Case        `json:"case"`
	EmittedAt time.Time            `json:"emitted_at"`
}

// Notify publishes the record and waits for broker acknowledgment, so an
// unreachable broker surfaces here as an error. Notifiers run after the case
// is durably written; a delivery failure loses at most the notification.
func (n *KafkaNotifier) Notify(ctx context.Context, event approval.NotifyEvent, c approval.Case) error {
	payload, err := json.Marshal(envelope{
		Event:     event,
		Subject:   Subject(event, c),
		Body:      Body(event, c),
		Case:      c,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal notification: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(c.ID.String()),
		Value: payload,
	}
	if err := n.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: publish notification: %w", err)
	}
	if n.logger != nil {
		n.logger.Debug("notification published",
			"event", string(event),
			"case_id", c.ID,
			"topic", n.topic,
		)
	}
	return nil
}

// Flush drains buffered records; call on shutdown.
func (n *KafkaNotifier) Flush(ctx context.Context) error {
	return n.client.Flush(ctx)
}

// Close flushes and releases the producer.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
