package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/campus-carpool/internal/models"
)

// Envelope is the Kafka payload for one appended message.
type Envelope struct {
	ConversationKey string         `json:"conversation_key"`
	Message         models.Message `json:"message"`
}

// KafkaSink publishes messages keyed by conversation, so one conversation
// always lands on one partition and keeps its order.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: topic, Balancer: &kafka.Hash{}}
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Append(ctx context.Context, key string, m models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := json.Marshal(Envelope{ConversationKey: key, Message: m})
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// DecodeEnvelope parses a KafkaSink payload.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}
