// Package session holds per-browser prediction state: the form input, the
// last outcome and the in-flight request.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/asset-predictor/internal/chart"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
)

// ErrSubmitInFlight is returned when a submit arrives while another is outstanding
var ErrSubmitInFlight = errors.New("a prediction request is already in flight")

// ErrClosed is returned by submits on a closed controller
var ErrClosed = errors.New("session is closed")

// View is the state of the result panel
type View string

// Result panel states; exactly one applies at a time
const (
	ViewLoading View = "loading"
	ViewError   View = "error"
	ViewEmpty   View = "empty"
	ViewResult  View = "result"
)

// Predicter runs a prediction for a session
type Predicter interface {
	Predict(ctx context.Context, sessionID string, in models.PredictionInput) (*prediction.Result, error)
}

// State is a point-in-time copy of a controller
type State struct {
	ID             string                  `json:"id"`
	Input          models.PredictionInput  `json:"input"`
	Prediction     *float64                `json:"prediction,omitempty"`
	Headline       string                  `json:"headline,omitempty"`
	ChartData      []models.ChartDataPoint `json:"chartData"`
	Domain         *chart.Domain           `json:"domain,omitempty"`
	Loading        bool                    `json:"loading"`
	Error          string                  `json:"error,omitempty"`
	FieldErrors    map[string]string       `json:"fieldErrors,omitempty"`
	SubmitDisabled bool                    `json:"submitDisabled"`
	View           View                    `json:"view"`
}

// Controller owns one session's input and prediction state.
// All methods are safe for concurrent use.
type Controller struct {
	id  string
	svc Predicter
	log zerolog.Logger
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	input       models.PredictionInput
	prediction  *float64
	headline    string
	chartData   []models.ChartDataPoint
	domain      *chart.Domain
	loading     bool
	errMsg      string
	fieldErrors map[string]string
	closed      bool
	lastActive  time.Time
}

// NewController creates a controller holding the default sample input
func NewController(id string, svc Predicter, log zerolog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:     id,
		svc:    svc,
		log:    log.With().Str("component", "session").Str("session_id", id).Logger(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		input:  models.DefaultPredictionInput(),
	}
	c.lastActive = c.now()
	return c
}

// ID returns the session id
func (c *Controller) ID() string {
	return c.id
}

// UpdateField replaces one input field with value, unchanged.
// Every other field keeps its exact previous value.
func (c *Controller) UpdateField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	in, err := c.input.WithField(name, value)
	if err != nil {
		return err
	}
	c.input = in
	c.lastActive = c.now()
	return nil
}

// SetInput replaces the whole input record
func (c *Controller) SetInput(in models.PredictionInput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = in
	c.lastActive = c.now()
}

// Submit runs a prediction for the current input and waits for it.
// It returns ErrSubmitInFlight if another submit is outstanding, otherwise
// the outcome of the prediction, which is also kept in the session state.
func (c *Controller) Submit(ctx context.Context) error {
	in, err := c.begin(false)
	if err != nil {
		return err
	}
	return c.run(ctx, in)
}

// SubmitAsync starts a prediction for the current input and returns once
// the session is in the loading state.
func (c *Controller) SubmitAsync() error {
	in, err := c.begin(true)
	if err != nil {
		return err
	}
	go func() {
		defer c.wg.Done()
		_ = c.run(context.Background(), in)
	}()
	return nil
}

// begin claims the in-flight slot and clears the previous outcome. When
// async is set the call is added to wg under the lock, so Close waits for it.
func (c *Controller) begin(async bool) (models.PredictionInput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return models.PredictionInput{}, ErrClosed
	}
	if c.loading {
		return models.PredictionInput{}, ErrSubmitInFlight
	}
	c.prediction = nil
	c.headline = ""
	c.chartData = nil
	c.domain = nil
	c.errMsg = ""
	c.fieldErrors = nil
	c.loading = true
	c.lastActive = c.now()
	if async {
		c.wg.Add(1)
	}
	return c.input, nil
}

func (c *Controller) run(ctx context.Context, in models.PredictionInput) (err error) {
	var res *prediction.Result
	defer func() { c.finish(res, err) }()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	res, err = c.svc.Predict(callCtx, c.id, in)
	return err
}

func (c *Controller) finish(res *prediction.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.loading = false }()

	c.lastActive = c.now()

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.errMsg = verr.Error()
		c.fieldErrors = verr.Fields
	case err != nil:
		c.errMsg = prediction.FailureMessage
		c.log.Warn().Err(err).Msg("prediction failed")
	case res == nil:
		c.errMsg = prediction.FailureMessage
	default:
		price := res.Price
		dom := res.Domain
		c.prediction = &price
		c.headline = res.Headline
		c.chartData = res.Points
		c.domain = &dom
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		ID:             c.id,
		Input:          c.input,
		Headline:       c.headline,
		Loading:        c.loading,
		Error:          c.errMsg,
		SubmitDisabled: c.loading,
	}
	if c.prediction != nil {
		p := *c.prediction
		st.Prediction = &p
	}
	if c.domain != nil {
		d := *c.domain
		st.Domain = &d
	}
	if c.chartData != nil {
		st.ChartData = append([]models.ChartDataPoint(nil), c.chartData...)
	}
	if c.fieldErrors != nil {
		st.FieldErrors = make(map[string]string, len(c.fieldErrors))
		for k, v := range c.fieldErrors {
			st.FieldErrors[k] = v
		}
	}

	switch {
	case c.loading:
		st.View = ViewLoading
	case c.errMsg != "":
		st.View = ViewError
	case c.prediction != nil:
		st.View = ViewResult
	default:
		st.View = ViewEmpty
	}
	return st
}

// idleSince reports whether the session has been untouched since t and
// has nothing in flight
func (c *Controller) idleSince(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.loading && c.lastActive.Before(t)
}

// Close cancels any outstanding prediction and waits for it to resolve
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
