package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// messageWriter is the part of kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing prediction events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishPredictionCompleted publishes a prediction completed event
func (p *Producer) PublishPredictionCompleted(ctx context.Context, rec *models.PredictionRecord) error {
	return p.publish(ctx, models.EventPredictionCompleted, rec)
}

// PublishPredictionFailed publishes a prediction failed event
func (p *Producer) PublishPredictionFailed(ctx context.Context, rec *models.PredictionRecord) error {
	return p.publish(ctx, models.EventPredictionFailed, rec)
}

// RecordPrediction publishes the event matching the record's status
func (p *Producer) RecordPrediction(ctx context.Context, rec *models.PredictionRecord) error {
	if rec.Status == models.PredictionStatusFailed {
		return p.PublishPredictionFailed(ctx, rec)
	}
	return p.PublishPredictionCompleted(ctx, rec)
}

func (p *Producer) publish(ctx context.Context, eventType string, rec *models.PredictionRecord) error {
	event := models.PredictionEvent{
		EventType: eventType,
		RequestID: rec.RequestID,
		Record:    rec,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.Ticker),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
