package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/GoPolymarket/unifygate/internal/config"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/segmentio/kafka-go"
)

// KafkaCallPublisher mirrors call records onto a topic for downstream analytics.
type KafkaCallPublisher struct {
	writer *kafka.Writer
}

func NewKafkaCallPublisher(cfg config.KafkaConfig) (*KafkaCallPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are empty")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}
	return &KafkaCallPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}}, nil
}

// Publish keys messages by installation so one site's records stay ordered per partition.
func (p *KafkaCallPublisher) Publish(ctx context.Context, rec *model.CallRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.UserID + ":" + rec.InstallationID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "endpoint", Value: []byte(rec.Endpoint)},
			{Key: "status", Value: []byte(strconv.Itoa(rec.ResponseStatus))},
		},
	})
}

func (p *KafkaCallPublisher) Close() error {
	return p.writer.Close()
}
