// Package cache reuses recent predictions for identical input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
)

const keyPrefix = "prediction:v1:"

type entry struct {
	Price float64 `json:"price"`
	Model string  `json:"model,omitempty"`
}

// Predictor wraps another Predictor and caches successful estimates.
// Store errors are logged and never fail a prediction.
type Predictor struct {
	next  prediction.Predictor
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

// NewPredictor creates a caching predictor
func NewPredictor(next prediction.Predictor, store Store, ttl time.Duration, log zerolog.Logger) *Predictor {
	return &Predictor{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "prediction_cache").Logger(),
	}
}

// Predict returns a cached estimate for the same normalized input, or asks
// the wrapped predictor and caches its answer.
func (p *Predictor) Predict(ctx context.Context, in models.NormalizedInput) (prediction.Estimate, error) {
	key := Key(in)

	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.log.Warn().Err(err).Msg("cache lookup failed")
	} else if ok {
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err == nil {
			p.log.Debug().Str("ticker", in.Ticker).Msg("cache hit")
			return prediction.Estimate{Price: e.Price, Model: e.Model, Cached: true}, nil
		}
		p.log.Warn().Str("key", key).Msg("discarding malformed cache entry")
	}

	est, err := p.next.Predict(ctx, in)
	if err != nil {
		return est, err
	}

	data, _ := json.Marshal(entry{Price: est.Price, Model: est.Model})
	if err := p.store.Set(ctx, key, string(data), p.ttl); err != nil {
		p.log.Warn().Err(err).Msg("cache store failed")
	}
	return est, nil
}

// Key derives the cache key of a normalized input. Inputs that differ only
// in formatting ("175.50" vs "175.5", "25.5M" vs "25,500,000", ticker case)
// share a key.
func Key(in models.NormalizedInput) string {
	parts := []string{
		strings.ToUpper(in.Ticker),
		in.Day1Open.String(),
		in.Day2Open.String(),
		in.Day3Open.String(),
		strconv.FormatInt(in.Volume, 10),
		string(in.JobsReport),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return keyPrefix + hex.EncodeToString(sum[:])
}
