package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// PredictionRepository defines the database operations the consumer needs
type PredictionRepository interface {
	CreatePrediction(p *models.PredictionRecord) error
	PredictionExistsByRequestID(requestID string) (bool, error)
}

// Consumer stores prediction events from Kafka into prediction history
type Consumer struct {
	reader *kafka.Reader
	repo   PredictionRepository
	log    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for prediction events
func NewConsumer(brokers []string, topic, groupID string, repo PredictionRepository, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		log:    log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error processing message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	c.log.Debug().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("received message")

	var event models.PredictionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal prediction event: %w", err)
	}

	if event.EventType != models.EventPredictionCompleted && event.EventType != models.EventPredictionFailed {
		c.log.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}

	rec, err := c.convertEventToRecord(event)
	if err != nil {
		return fmt.Errorf("failed to convert event to prediction record: %w", err)
	}

	// Check for duplicate (idempotency)
	exists, err := c.repo.PredictionExistsByRequestID(rec.RequestID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate prediction: %w", err)
	}
	if exists {
		c.log.Debug().Str("request_id", rec.RequestID).Msg("prediction already recorded, skipping")
		return nil
	}

	if err := c.repo.CreatePrediction(rec); err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	c.log.Info().
		Str("request_id", rec.RequestID).
		Str("ticker", rec.Ticker).
		Str("status", rec.Status).
		Msg("saved prediction")

	return nil
}

// convertEventToRecord checks an event's record against its envelope
func (c *Consumer) convertEventToRecord(event models.PredictionEvent) (*models.PredictionRecord, error) {
	rec := event.Record
	if rec == nil {
		return nil, fmt.Errorf("event %s has no record", event.RequestID)
	}
	if rec.RequestID == "" {
		rec.RequestID = event.RequestID
	}
	if rec.RequestID == "" {
		return nil, fmt.Errorf("event has no request id")
	}

	switch event.EventType {
	case models.EventPredictionCompleted:
		if rec.PredictedPrice == nil {
			return nil, fmt.Errorf("completed prediction %s has no price", rec.RequestID)
		}
		rec.Status = models.PredictionStatusCompleted
	case models.EventPredictionFailed:
		rec.Status = models.PredictionStatusFailed
		rec.PredictedPrice = nil
	}

	if rec.RequestedAt.IsZero() {
		rec.RequestedAt = event.Timestamp
	}
	rec.ID = 0
	return rec, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
