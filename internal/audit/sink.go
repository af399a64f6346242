package audit

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes audit events to a Kafka topic. Messages are keyed
// by entity id so events for one entity stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:  kafka.LoggerFunc(log.Printf),
	}
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink writes audit events to the process log. Used when no Kafka
// brokers are configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Write(_ context.Context, event Event) error {
	log.Printf("audit: %s %s %s actor=%s %s",
		event.ActionType, event.EntityType, event.EntityID, event.ActorID, event.Description)
	return nil
}
