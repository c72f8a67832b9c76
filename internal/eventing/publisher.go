package eventing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Sink receives built envelopes.
type Sink interface {
	Write(ctx context.Context, env Envelope) error
}

// Publisher wraps events in envelopes and hands them to a sink.
type Publisher struct {
	sink     Sink
	tenantID string
}

// NewPublisher constructs a publisher. tenantID is used when ctx carries none.
func NewPublisher(sink Sink, tenantID string) *Publisher {
	return &Publisher{sink: sink, tenantID: tenantID}
}

// Publish builds the envelope for event and writes it to the sink.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	if p == nil || p.sink == nil {
		return nil
	}
	env, err := BuildEnvelope(event, MetaFromContext(ctx, p.tenantID))
	if err != nil {
		return err
	}
	return p.sink.Write(ctx, env)
}

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes envelopes as JSON messages keyed by station.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaWriter returns a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// NewKafkaSink constructs a sink over writer.
func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// Write publishes one envelope.
func (s *KafkaSink) Write(ctx context.Context, env Envelope) error {
	if s == nil || s.writer == nil {
		return errors.New("eventing: nil kafka writer")
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.StationID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
		Time: env.OccurredAt,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("eventing: kafka write %s: %w", env.EventType, err)
	}
	return nil
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
