package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaNotifier struct {
	writer MessageWriter
}

func NewKafkaNotifier(writer MessageWriter) Notifier {
	return &kafkaNotifier{writer: writer}
}

func (n *kafkaNotifier) Name() string { return "kafka" }

// Notify keys messages by asset so events for one asset stay ordered.
func (n *kafkaNotifier) Notify(ctx context.Context, event dto.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.AssetID),
		Value: data,
		Time:  event.OccurredAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func NewKafkaWriter(cfg config.Kafka) *kafka.Writer {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: writeTimeout,
		BatchTimeout: 100 * time.Millisecond,
	}
}
