package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/asset-predictor/internal/api"
	"github.com/trogers1052/asset-predictor/internal/cache"
	"github.com/trogers1052/asset-predictor/internal/config"
	"github.com/trogers1052/asset-predictor/internal/database"
	"github.com/trogers1052/asset-predictor/internal/gemini"
	"github.com/trogers1052/asset-predictor/internal/kafka"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
	"github.com/trogers1052/asset-predictor/internal/scheduler"
	"github.com/trogers1052/asset-predictor/internal/session"
)

const (
	retentionSchedule = "@hourly"
	shutdownTimeout   = 10 * time.Second
)

// newPredictor builds the Gemini-backed predictor, cached when Redis is
// configured. The returned cleanup releases the cache connection.
func newPredictor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (prediction.Predictor, func(), error) {
	gen := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, log)
	var predictor prediction.Predictor = prediction.NewClient(gen, cfg.Gemini.Temperature, log)

	if !cfg.Redis.Enabled() {
		return predictor, func() {}, nil
	}
	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("prediction cache enabled")
	return cache.NewPredictor(predictor, store, cfg.Redis.TTL, log), func() { store.Close() }, nil
}

func openDatabase(cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.DBName).Msg("prediction history enabled")
	return db, nil
}

func addRetentionJob(sched *scheduler.Scheduler, cfg *config.Config, db *database.DB, log zerolog.Logger) error {
	if cfg.Database.Retention <= 0 {
		return nil
	}
	return sched.AddJob(retentionSchedule, database.NewRetentionJob(db, cfg.Database.Retention, log))
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	predictor, closeCache, err := newPredictor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	sched := scheduler.New(log)

	var db *database.DB
	var history api.HistoryReader
	if cfg.Database.Enabled() {
		if db, err = openDatabase(cfg, log); err != nil {
			return err
		}
		defer db.Close()
		history = db
		if err := addRetentionJob(sched, cfg, db, log); err != nil {
			return err
		}
	}

	var recorder prediction.Recorder
	switch {
	case cfg.Kafka.Enabled():
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		recorder = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing prediction events")
	case db != nil:
		recorder = db
	}

	svc := prediction.NewService(predictor, recorder, log)
	sessions := session.NewStore(svc, cfg.Session.IdleTTL, log)
	defer sessions.Close()

	if err := sched.AddJob(cfg.Session.SweepSpec, sessions); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(api.NewHandler(svc, sessions, history, log)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("model", cfg.Gemini.Model).Msg("starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runRecord(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	sched := scheduler.New(log)
	if err := addRetentionJob(sched, cfg, db, log); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, db, log)
	return consumer.Start(ctx)
}

func runPredict(ctx context.Context, cfg *config.Config, log zerolog.Logger, in models.PredictionInput) (*prediction.Result, error) {
	predictor, closeCache, err := newPredictor(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer closeCache()

	var recorder prediction.Recorder
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		recorder = producer
	}

	return prediction.NewService(predictor, recorder, log).Predict(ctx, "", in)
}
