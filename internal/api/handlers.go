package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/asset-predictor/internal/database"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/prediction"
	"github.com/trogers1052/asset-predictor/internal/session"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryReader reads recorded predictions
type HistoryReader interface {
	GetPrediction(id int) (*models.PredictionRecord, error)
	ListPredictions(ticker string, limit int) ([]*models.PredictionRecord, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc      session.Predicter
	sessions *session.Store
	history  HistoryReader
	log      zerolog.Logger
}

// NewHandler creates a new Handler. A nil history disables the history
// endpoints.
func NewHandler(svc session.Predicter, sessions *session.Store, history HistoryReader, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		sessions: sessions,
		history:  history,
		log:      log.With().Str("component", "api").Logger(),
	}
}

type chartResponse struct {
	Points []models.ChartDataPoint `json:"points"`
	YMin   float64                 `json:"yMin"`
	YMax   float64                 `json:"yMax"`
}

type predictionResponse struct {
	RequestID      string        `json:"requestId"`
	Ticker         string        `json:"ticker"`
	PredictedPrice float64       `json:"predictedPrice"`
	Headline       string        `json:"headline"`
	Chart          chartResponse `json:"chart"`
	Cached         bool          `json:"cached"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// CreatePrediction handles POST /predictions
func (h *Handler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var in models.PredictionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Predict(r.Context(), "", in)
	if err != nil {
		h.respondPredictionError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newPredictionResponse(res))
}

// ListPredictions handles GET /predictions
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusServiceUnavailable, "prediction history is not configured")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	records, err := h.history.ListPredictions(ticker, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list predictions")
		h.respondError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}

	h.respondJSON(w, http.StatusOK, records)
}

// GetPrediction handles GET /predictions/{id}
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusServiceUnavailable, "prediction history is not configured")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid prediction id")
		return
	}

	record, err := h.history.GetPrediction(id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "prediction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int("id", id).Msg("failed to get prediction")
		h.respondError(w, http.StatusInternalServerError, "failed to get prediction")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// GetSession handles GET /session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c := h.sessionFor(w, r)
	h.respondJSON(w, http.StatusOK, c.Snapshot())
}

// UpdateSessionInput handles PATCH /session/input. The body maps field
// names to their new raw values.
func (h *Handler) UpdateSessionInput(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := h.sessionFor(w, r)
	for name := range fields {
		if !models.IsField(name) {
			h.respondError(w, http.StatusBadRequest, "unknown field: "+name)
			return
		}
	}
	for name, value := range fields {
		_ = c.UpdateField(name, value)
	}

	h.respondJSON(w, http.StatusOK, c.Snapshot())
}

// SubmitSession handles POST /session/submit and waits for the outcome
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	c := h.sessionFor(w, r)

	err := c.Submit(r.Context())
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		h.respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrClosed):
		h.respondError(w, http.StatusGone, err.Error())
		return
	}

	// prediction failures are part of the session state
	h.respondJSON(w, http.StatusOK, c.Snapshot())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) respondPredictionError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	h.log.Warn().Err(err).Msg("prediction failed")
	h.respondError(w, http.StatusBadGateway, prediction.FailureMessage)
}

func newPredictionResponse(res *prediction.Result) predictionResponse {
	return predictionResponse{
		RequestID:      res.RequestID,
		Ticker:         res.Ticker,
		PredictedPrice: res.Price,
		Headline:       res.Headline,
		Chart: chartResponse{
			Points: res.Points,
			YMin:   res.Domain.Min,
			YMax:   res.Domain.Max,
		},
		Cached: res.Cached,
	}
}

// respondJSON encodes data before writing the status, so an unencodable
// value becomes a 500 instead of an empty reply
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.log.Debug().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, errorResponse{Error: msg})
}
