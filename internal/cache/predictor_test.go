package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
)

// memoryStore is an in-memory Store for tests
type memoryStore struct {
	data     map[string]string
	ttls     map[string]time.Duration
	getErr   error
	setErr   error
	SetCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.SetCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// countingPredictor counts calls to the wrapped predictor
type countingPredictor struct {
	est   prediction.Estimate
	err   error
	calls int
}

func (c *countingPredictor) Predict(context.Context, models.NormalizedInput) (prediction.Estimate, error) {
	c.calls++
	return c.est, c.err
}

func normalize(t *testing.T, in models.PredictionInput) models.NormalizedInput {
	t.Helper()
	n, err := in.Normalize()
	require.NoError(t, err)
	return n
}

func TestPredictor(t *testing.T) {
	ctx := context.Background()

	t.Run("second identical request is served from cache", func(t *testing.T) {
		next := &countingPredictor{est: prediction.Estimate{Price: 178.42, Model: "gemini-2.5-flash"}}
		store := newMemoryStore()
		p := NewPredictor(next, store, time.Minute, zerolog.Nop())
		in := normalize(t, models.DefaultPredictionInput())

		first, err := p.Predict(ctx, in)
		require.NoError(t, err)
		assert.False(t, first.Cached)

		second, err := p.Predict(ctx, in)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, 178.42, second.Price)
		assert.Equal(t, "gemini-2.5-flash", second.Model)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, time.Minute, store.ttls[Key(in)])
	})

	t.Run("failures are not cached", func(t *testing.T) {
		next := &countingPredictor{err: &prediction.Error{Kind: prediction.KindEmptyResponse}}
		store := newMemoryStore()
		p := NewPredictor(next, store, time.Minute, zerolog.Nop())
		in := normalize(t, models.DefaultPredictionInput())

		_, err := p.Predict(ctx, in)
		require.Error(t, err)
		_, err = p.Predict(ctx, in)
		require.Error(t, err)
		assert.Equal(t, 2, next.calls)
		assert.Zero(t, store.SetCalls)
	})

	t.Run("store errors fall through to the predictor", func(t *testing.T) {
		next := &countingPredictor{est: prediction.Estimate{Price: 5}}
		store := newMemoryStore()
		store.getErr = errors.New("redis down")
		store.setErr = errors.New("redis down")
		p := NewPredictor(next, store, time.Minute, zerolog.Nop())

		est, err := p.Predict(ctx, normalize(t, models.DefaultPredictionInput()))
		require.NoError(t, err)
		assert.Equal(t, 5.0, est.Price)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("malformed entries are ignored", func(t *testing.T) {
		next := &countingPredictor{est: prediction.Estimate{Price: 7}}
		store := newMemoryStore()
		in := normalize(t, models.DefaultPredictionInput())
		store.data[Key(in)] = "not json"
		p := NewPredictor(next, store, time.Minute, zerolog.Nop())

		est, err := p.Predict(ctx, in)
		require.NoError(t, err)
		assert.False(t, est.Cached)
		assert.Equal(t, 1, next.calls)
	})
}

func TestKey(t *testing.T) {
	a := models.DefaultPredictionInput()
	b := a
	b.Ticker = "googl"
	b.Day1Open = "175.5"
	b.Volume = "25,500,000"
	b.JobsReport = "strong"
	assert.Equal(t, Key(normalize(t, a)), Key(normalize(t, b)))

	c := a
	c.JobsReport = models.JobsReportWeak
	assert.NotEqual(t, Key(normalize(t, a)), Key(normalize(t, c)))
}
