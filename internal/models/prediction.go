package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JobsReport is the qualitative strength of the latest jobs report
type JobsReport string

// Jobs report constants
const (
	JobsReportStrong  JobsReport = "Strong"
	JobsReportNeutral JobsReport = "Neutral"
	JobsReportWeak    JobsReport = "Weak"
)

// JobsReports lists the accepted jobs report values in display order
var JobsReports = []JobsReport{JobsReportStrong, JobsReportNeutral, JobsReportWeak}

// Form field names, shared by the HTML form, the JSON API and WithField
const (
	FieldTicker     = "ticker"
	FieldDay1Open   = "day1Open"
	FieldDay2Open   = "day2Open"
	FieldDay3Open   = "day3Open"
	FieldVolume     = "volume"
	FieldJobsReport = "jobsReport"
)

// Chart labels for the four points of a prediction series
const (
	LabelDay1Open       = "Day 1 Open"
	LabelDay2Open       = "Day 2 Open"
	LabelDay3Open       = "Day 3 Open"
	LabelPredictedClose = "Predicted Close"
)

// Prediction status constants
const (
	PredictionStatusCompleted = "COMPLETED"
	PredictionStatusFailed    = "FAILED"
)

// Prediction event type constants
const (
	EventPredictionCompleted = "PREDICTION_COMPLETED"
	EventPredictionFailed    = "PREDICTION_FAILED"
)

// PredictionInput is the raw form state a user edits.
// Every field is kept exactly as typed; see Normalize for the parsed form.
type PredictionInput struct {
	Ticker     string     `json:"ticker"`
	Day1Open   string     `json:"day1Open"`
	Day2Open   string     `json:"day2Open"`
	Day3Open   string     `json:"day3Open"`
	Volume     string     `json:"volume"`
	JobsReport JobsReport `json:"jobsReport"`
}

// DefaultPredictionInput returns the sample values a new session starts with
func DefaultPredictionInput() PredictionInput {
	return PredictionInput{
		Ticker:     "GOOGL",
		Day1Open:   "175.50",
		Day2Open:   "176.20",
		Day3Open:   "177.10",
		Volume:     "25.5M",
		JobsReport: JobsReportStrong,
	}
}

// WithField returns a copy of the input with a single field replaced.
// The value is stored unchanged.
func (in PredictionInput) WithField(name, value string) (PredictionInput, error) {
	switch name {
	case FieldTicker:
		in.Ticker = value
	case FieldDay1Open:
		in.Day1Open = value
	case FieldDay2Open:
		in.Day2Open = value
	case FieldDay3Open:
		in.Day3Open = value
	case FieldVolume:
		in.Volume = value
	case FieldJobsReport:
		in.JobsReport = JobsReport(value)
	default:
		return in, fmt.Errorf("unknown field: %s", name)
	}
	return in, nil
}

// ChartDataPoint is one labelled price on the prediction chart
type ChartDataPoint struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PredictionRecord is one entry of prediction history
type PredictionRecord struct {
	ID             int              `json:"id"`
	RequestID      string           `json:"request_id"`
	SessionID      string           `json:"session_id,omitempty"`
	Ticker         string           `json:"ticker"`
	Day1Open       decimal.Decimal  `json:"day1_open"`
	Day2Open       decimal.Decimal  `json:"day2_open"`
	Day3Open       decimal.Decimal  `json:"day3_open"`
	VolumeRaw      string           `json:"volume_raw"`
	Volume         int64            `json:"volume"`
	JobsReport     JobsReport       `json:"jobs_report"`
	PredictedPrice *decimal.Decimal `json:"predicted_price,omitempty"`
	Status         string           `json:"status"`
	FailureKind    string           `json:"failure_kind,omitempty"`
	Model          string           `json:"model,omitempty"`
	Cached         bool             `json:"cached"`
	RequestedAt    time.Time        `json:"requested_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// PredictionEvent represents a Kafka event for a finished prediction
type PredictionEvent struct {
	EventType string            `json:"event_type"`
	RequestID string            `json:"request_id"`
	Record    *PredictionRecord `json:"record"`
	Timestamp time.Time         `json:"timestamp"`
}
