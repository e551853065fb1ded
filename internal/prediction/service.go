package prediction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/asset-predictor/internal/chart"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// Recorder keeps a history of finished predictions
type Recorder interface {
	RecordPrediction(ctx context.Context, rec *models.PredictionRecord) error
}

// NoopRecorder is used when no history backend is configured
type NoopRecorder struct{}

func (NoopRecorder) RecordPrediction(context.Context, *models.PredictionRecord) error { return nil }

// Result is a successful prediction ready to display
type Result struct {
	RequestID string                  `json:"requestId"`
	Ticker    string                  `json:"ticker"`
	Price     float64                 `json:"predictedPrice"`
	Headline  string                  `json:"headline"`
	Points    []models.ChartDataPoint `json:"points"`
	Domain    chart.Domain            `json:"domain"`
	Cached    bool                    `json:"cached"`
}

// Service validates input, asks the predictor and records the outcome
type Service struct {
	predictor Predictor
	recorder  Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a new prediction service. A nil recorder records nothing.
func NewService(predictor Predictor, recorder Recorder, log zerolog.Logger) *Service {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &Service{
		predictor: predictor,
		recorder:  recorder,
		log:       log.With().Str("component", "prediction_service").Logger(),
		now:       time.Now,
	}
}

// Predict runs one prediction. Invalid input is returned as a
// *models.ValidationError without calling the predictor; predictor
// failures are returned as *Error.
func (s *Service) Predict(ctx context.Context, sessionID string, in models.PredictionInput) (*Result, error) {
	norm, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	requestedAt := s.now()
	requestID := uuid.NewString()

	est, err := s.predictor.Predict(ctx, norm)
	rec := newRecord(requestID, sessionID, norm, requestedAt)
	if err != nil {
		rec.Status = models.PredictionStatusFailed
		if kind, ok := KindOf(err); ok {
			rec.FailureKind = kind.String()
		} else {
			rec.FailureKind = KindTransport.String()
			err = newError(KindTransport, err)
		}
		s.record(ctx, rec)
		return nil, err
	}

	price := decimal.NewFromFloat(est.Price)
	rec.Status = models.PredictionStatusCompleted
	rec.PredictedPrice = &price
	rec.Model = est.Model
	rec.Cached = est.Cached
	s.record(ctx, rec)

	points := chart.Series(norm, est.Price)
	dom, _ := chart.YDomain(points)
	return &Result{
		RequestID: requestID,
		Ticker:    norm.Ticker,
		Price:     est.Price,
		Headline:  chart.FormatPrice(est.Price),
		Points:    points,
		Domain:    dom,
		Cached:    est.Cached,
	}, nil
}

func (s *Service) record(ctx context.Context, rec *models.PredictionRecord) {
	// cancelled requests are still recorded
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.RecordPrediction(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("request_id", rec.RequestID).Msg("failed to record prediction")
	}
}

func newRecord(requestID, sessionID string, in models.NormalizedInput, at time.Time) *models.PredictionRecord {
	return &models.PredictionRecord{
		RequestID:   requestID,
		SessionID:   sessionID,
		Ticker:      in.Ticker,
		Day1Open:    in.Day1Open,
		Day2Open:    in.Day2Open,
		Day3Open:    in.Day3Open,
		VolumeRaw:   in.Raw.Volume,
		Volume:      in.Volume,
		JobsReport:  in.JobsReport,
		RequestedAt: at,
	}
}
