package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes the customer summary and the admin alert to two
// topics, keyed by order id so both land on the order's partition.
type KafkaDispatcher struct {
	writer     messageWriter
	orderTopic string
	adminTopic string
}

func NewKafkaDispatcher(brokers []string, orderTopic, adminTopic string) *KafkaDispatcher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaDispatcher(writer, orderTopic, adminTopic)
}

func newKafkaDispatcher(w messageWriter, orderTopic, adminTopic string) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w, orderTopic: orderTopic, adminTopic: adminTopic}
}

func (k *KafkaDispatcher) Dispatch(ctx context.Context, summary Summary) error {
	orderPayload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal order summary: %w", err)
	}
	adminPayload, err := json.Marshal(summary.AdminAlert())
	if err != nil {
		return fmt.Errorf("notify: failed to marshal admin alert: %w", err)
	}

	key := []byte(summary.OrderID.String())
	err = k.writer.WriteMessages(ctx,
		kafka.Message{Topic: k.orderTopic, Key: key, Value: orderPayload},
		kafka.Message{Topic: k.adminTopic, Key: key, Value: adminPayload},
	)
	if err != nil {
		return fmt.Errorf("notify: failed to publish order %s: %w", summary.OrderID, err)
	}

	return nil
}

func (k *KafkaDispatcher) Close() error {
	return k.writer.Close()
}
