package database

import (
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob deletes prediction history older than MaxAge
type RetentionJob struct {
	db     *DB
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewRetentionJob creates a history cleanup job
func NewRetentionJob(db *DB, maxAge time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{db: db, maxAge: maxAge, log: log, now: time.Now}
}

// Name identifies the job
func (j *RetentionJob) Name() string {
	return "history_retention"
}

// Run deletes expired predictions
func (j *RetentionJob) Run() error {
	n, err := j.db.DeletePredictionsOlderThan(j.now().Add(-j.maxAge))
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Info().Int64("deleted", n).Msg("pruned prediction history")
	}
	return nil
}
