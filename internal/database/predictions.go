package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/asset-predictor/internal/models"
)

const predictionColumns = `
	id, request_id, session_id, ticker, day1_open, day2_open, day3_open,
	volume_raw, volume, jobs_report, predicted_price, status, failure_kind,
	model, cached, requested_at, created_at
`

// CreatePrediction inserts a prediction record. A record whose request id
// already exists is left untouched.
func (db *DB) CreatePrediction(p *models.PredictionRecord) error {
	return db.RecordPrediction(context.Background(), p)
}

// RecordPrediction inserts a prediction record using ctx
func (db *DB) RecordPrediction(ctx context.Context, p *models.PredictionRecord) error {
	query := `
		INSERT INTO predictions (
			request_id, session_id, ticker, day1_open, day2_open, day3_open,
			volume_raw, volume, jobs_report, predicted_price, status, failure_kind,
			model, cached, requested_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING id
	`
	now := time.Now()
	var predicted decimal.NullDecimal
	if p.PredictedPrice != nil {
		predicted = decimal.NewNullDecimal(*p.PredictedPrice)
	}

	err := db.conn.QueryRowContext(ctx, query,
		p.RequestID, nullString(p.SessionID), p.Ticker, p.Day1Open, p.Day2Open, p.Day3Open,
		p.VolumeRaw, p.Volume, string(p.JobsReport), predicted, p.Status, nullString(p.FailureKind),
		nullString(p.Model), p.Cached, p.RequestedAt, now,
	).Scan(&p.ID)

	if err == sql.ErrNoRows {
		// duplicate request id
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// PredictionExistsByRequestID checks whether a request id was recorded
func (db *DB) PredictionExistsByRequestID(requestID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM predictions WHERE request_id = $1)`, requestID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prediction: %w", err)
	}
	return exists, nil
}

// GetPrediction retrieves a prediction record by ID
func (db *DB) GetPrediction(id int) (*models.PredictionRecord, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("prediction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// ListPredictions retrieves the most recent predictions, newest first.
// An empty ticker lists every ticker.
func (db *DB) ListPredictions(ticker string, limit int) ([]*models.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE ($1::text = '' OR upper(ticker) = upper($1::text))
		ORDER BY requested_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	predictions := []*models.PredictionRecord{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return predictions, nil
}

// DeletePredictionsOlderThan removes predictions requested before t
func (db *DB) DeletePredictionsOlderThan(t time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM predictions WHERE requested_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old predictions: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*models.PredictionRecord, error) {
	var p models.PredictionRecord
	var sessionID, failureKind, model sql.NullString
	var jobsReport string
	var predicted decimal.NullDecimal

	err := row.Scan(
		&p.ID, &p.RequestID, &sessionID, &p.Ticker, &p.Day1Open, &p.Day2Open, &p.Day3Open,
		&p.VolumeRaw, &p.Volume, &jobsReport, &predicted, &p.Status, &failureKind,
		&model, &p.Cached, &p.RequestedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SessionID = sessionID.String
	p.FailureKind = failureKind.String
	p.Model = model.String
	p.JobsReport = models.JobsReport(jobsReport)
	if predicted.Valid {
		price := predicted.Decimal
		p.PredictedPrice = &price
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
