package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"MASentinel/internal/model"
)

// Message is one part of a run's alert as handed to a Sink.
type Message struct {
	RunID string
	Part  model.MessagePart
	Total int
}

// Sink is an outbound delivery channel for alert parts.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Deliver sends one part, retrying MaxRetries times.
func (t *TelegramNotifier) Deliver(ctx context.Context, msg Message) error {
	return t.SendWithRetry(ctx, msg.Part.Text(), t.MaxRetries)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every part as a JSON event keyed by run ID.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

type alertEvent struct {
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	Part      int       `json:"part"`
	Total     int       `json:"total"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer, topic: topic}
}

func (k *KafkaSink) Name() string { return "kafka:" + k.topic }

func (k *KafkaSink) Deliver(ctx context.Context, msg Message) error {
	data, err := json.Marshal(alertEvent{
		EventType: "MA_PROXIMITY_ALERT",
		RunID:     msg.RunID,
		Part:      msg.Part.Index,
		Total:     msg.Total,
		Text:      msg.Part.Text(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.RunID), Value: data}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// StdoutSink prints parts instead of delivering them; used for dry runs.
type StdoutSink struct {
	W io.Writer
}

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Deliver(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(s.W, "----- part %d/%d -----\n%s\n", msg.Part.Index, msg.Total, msg.Part.Text())
	return err
}
