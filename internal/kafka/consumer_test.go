package kafka

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// MockRepository implements PredictionRepository for testing
type MockRepository struct {
	predictions map[string]*models.PredictionRecord // key: request id
	nextID      int
	existsErr   error

	// Track method calls for verification
	CreatePredictionCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		predictions: make(map[string]*models.PredictionRecord),
		nextID:      1,
	}
}

func (m *MockRepository) CreatePrediction(p *models.PredictionRecord) error {
	m.CreatePredictionCalls++
	p.ID = m.nextID
	m.nextID++
	m.predictions[p.RequestID] = p
	return nil
}

func (m *MockRepository) PredictionExistsByRequestID(requestID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, exists := m.predictions[requestID]
	return exists, nil
}

func newTestConsumer(repo PredictionRepository) *Consumer {
	return &Consumer{repo: repo, log: zerolog.Nop()}
}

func eventMessage(t *testing.T, event models.PredictionEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("GOOGL"), Value: data}
}

func completedEvent(requestID string) models.PredictionEvent {
	price := decimal.RequireFromString("178.42")
	return models.PredictionEvent{
		EventType: models.EventPredictionCompleted,
		RequestID: requestID,
		Timestamp: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC),
		Record: &models.PredictionRecord{
			ID:             42,
			RequestID:      requestID,
			Ticker:         "GOOGL",
			Day1Open:       decimal.RequireFromString("175.50"),
			Day2Open:       decimal.RequireFromString("176.20"),
			Day3Open:       decimal.RequireFromString("177.10"),
			VolumeRaw:      "25.5M",
			Volume:         25_500_000,
			JobsReport:     models.JobsReportStrong,
			PredictedPrice: &price,
			Status:         models.PredictionStatusCompleted,
		},
	}
}

func TestProcessMessage(t *testing.T) {
	t.Run("stores completed prediction", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		err := consumer.processMessage(eventMessage(t, completedEvent("req-1")))
		require.NoError(t, err)

		require.Contains(t, repo.predictions, "req-1")
		rec := repo.predictions["req-1"]
		assert.Equal(t, 1, rec.ID)
		assert.Equal(t, "GOOGL", rec.Ticker)
		assert.Equal(t, models.PredictionStatusCompleted, rec.Status)
		assert.True(t, decimal.RequireFromString("178.42").Equal(*rec.PredictedPrice))
		assert.Equal(t, time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), rec.RequestedAt)
	})

	t.Run("skips duplicate request ids", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		msg := eventMessage(t, completedEvent("req-1"))
		require.NoError(t, consumer.processMessage(msg))
		require.NoError(t, consumer.processMessage(msg))

		assert.Equal(t, 1, repo.CreatePredictionCalls)
	})

	t.Run("stores failed prediction without price", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		event := completedEvent("req-2")
		event.EventType = models.EventPredictionFailed
		event.Record.FailureKind = "ParseError"

		require.NoError(t, consumer.processMessage(eventMessage(t, event)))
		rec := repo.predictions["req-2"]
		require.NotNil(t, rec)
		assert.Equal(t, models.PredictionStatusFailed, rec.Status)
		assert.Nil(t, rec.PredictedPrice)
		assert.Equal(t, "ParseError", rec.FailureKind)
	})

	t.Run("request id falls back to the envelope", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		event := completedEvent("req-3")
		event.Record.RequestID = ""
		require.NoError(t, consumer.processMessage(eventMessage(t, event)))
		assert.Contains(t, repo.predictions, "req-3")
	})

	t.Run("ignores other event types", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		event := completedEvent("req-4")
		event.EventType = "STOCK_ADDED"
		require.NoError(t, consumer.processMessage(eventMessage(t, event)))
		assert.Zero(t, repo.CreatePredictionCalls)
	})

	t.Run("rejects malformed messages", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		err := consumer.processMessage(kafka.Message{Value: []byte("{not json")})
		assert.Error(t, err)
		assert.Zero(t, repo.CreatePredictionCalls)
	})

	t.Run("rejects completed events without a price", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		event := completedEvent("req-5")
		event.Record.PredictedPrice = nil
		assert.Error(t, consumer.processMessage(eventMessage(t, event)))
		assert.Zero(t, repo.CreatePredictionCalls)
	})

	t.Run("rejects events without a record", func(t *testing.T) {
		repo := NewMockRepository()
		consumer := newTestConsumer(repo)

		event := completedEvent("req-6")
		event.Record = nil
		assert.Error(t, consumer.processMessage(eventMessage(t, event)))
	})

	t.Run("repository errors are returned", func(t *testing.T) {
		repo := NewMockRepository()
		repo.existsErr = fmt.Errorf("connection reset")
		consumer := newTestConsumer(repo)

		err := consumer.processMessage(eventMessage(t, completedEvent("req-7")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})
}
