package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"cdcflow/logger"
)

// MessageWriter is the subset of kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each row as a JSON message keyed by instrument.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	log    *logger.Log
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	return newKafkaSink(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}, topic), nil
}

func newKafkaSink(w MessageWriter, topic string) *KafkaSink {
	s := &KafkaSink{writer: w, topic: topic, log: logger.GetLogger()}
	s.log.WithComponent("kafka_sink").WithFields(logger.Fields{"topic": topic}).Debug("kafka sink initialized")
	return s
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, batch Batch) (int64, error) {
	if len(batch.Rows) == 0 {
		return 0, nil
	}
	msgs := make([]kafka.Message, 0, len(batch.Rows))
	var size int64
	for _, row := range batch.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("marshal %s row: %w", batch.Kind, err)
		}
		size += int64(len(data))
		msgs = append(msgs, kafka.Message{
			Key:   []byte(batch.Instrument),
			Value: data,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(batch.Kind)},
				{Key: "batch_id", Value: []byte(batch.ID)},
			},
		})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.log.WithComponent("kafka_sink").WithError(err).Warn("failed to write messages")
		return 0, fmt.Errorf("write to topic %s: %w", s.topic, err)
	}
	s.log.WithComponent("kafka_sink").WithFields(logger.Fields{
		"batch_id": batch.ID,
		"records":  len(msgs),
	}).Debug("batch written to kafka")
	return size, nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
