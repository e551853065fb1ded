package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/trogers1052/asset-predictor/internal/chart"
	"github.com/trogers1052/asset-predictor/internal/models"
	"github.com/trogers1052/asset-predictor/internal/session"
)

// SessionCookie is the cookie carrying the browser's session id
const SessionCookie = "predictor_session"

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type formField struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
	Hint        string
	Error       string
	Options     []string
}

type pageData struct {
	State        session.State
	Fields       []formField
	Refresh      bool
	ChartVersion string
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	st := h.sessionFor(w, r).Snapshot()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPageData(st)); err != nil {
		h.log.Error().Err(err).Msg("failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// UpdateField handles POST /field with form values name and value
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	c := h.sessionFor(w, r)
	if err := c.UpdateField(r.PostForm.Get("name"), r.PostForm.Get("value")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Predict handles POST /predict: it stores the posted fields, starts a
// prediction and sends the browser back to the page
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	c := h.sessionFor(w, r)
	if !c.Snapshot().Loading {
		for name, values := range r.PostForm {
			if models.IsField(name) && len(values) > 0 {
				_ = c.UpdateField(name, values[0])
			}
		}
	}

	if err := c.SubmitAsync(); err != nil && !errors.Is(err, session.ErrSubmitInFlight) {
		h.log.Warn().Err(err).Str("session_id", c.ID()).Msg("failed to start prediction")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Chart handles GET /chart.png for the session's latest prediction
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	st := h.sessionFor(w, r).Snapshot()

	var buf bytes.Buffer
	err := chart.RenderPNG(&buf, st.ChartData, chart.DefaultOptions())
	if errors.Is(err, chart.ErrNoData) {
		http.Error(w, "no prediction to chart", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to render chart")
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// sessionFor returns the caller's session, starting one and setting the
// cookie when the request carries no known session id
func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Controller {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	c, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    c.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

func newPageData(st session.State) pageData {
	in := st.Input
	jobs := make([]string, len(models.JobsReports))
	for i, j := range models.JobsReports {
		jobs[i] = string(j)
	}

	fields := []formField{
		{Name: models.FieldTicker, Label: "Asset Ticker", Placeholder: "e.g., AAPL", Value: in.Ticker},
		{Name: models.FieldDay1Open, Label: models.LabelDay1Open, Placeholder: "e.g., 150.25", Value: in.Day1Open},
		{Name: models.FieldDay2Open, Label: models.LabelDay2Open, Placeholder: "e.g., 151.00", Value: in.Day2Open},
		{Name: models.FieldDay3Open, Label: models.LabelDay3Open, Placeholder: "e.g., 150.75", Value: in.Day3Open},
		{Name: models.FieldVolume, Label: "Trading Volume (Supply)", Placeholder: "e.g., 85M", Value: in.Volume, Hint: volumeHint(in.Volume)},
		{Name: models.FieldJobsReport, Label: "Jobs Report (Demand)", Value: string(in.JobsReport), Options: jobs},
	}
	for i := range fields {
		fields[i].Error = st.FieldErrors[fields[i].Name]
	}

	data := pageData{
		State:   st,
		Fields:  fields,
		Refresh: st.Loading,
	}
	if st.Prediction != nil {
		data.ChartVersion = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return data
}

// volumeHint spells out a parsed volume, e.g. "25.5M" as "25,500,000 shares"
func volumeHint(raw string) string {
	v, err := models.ParseVolume(raw)
	if err != nil {
		return ""
	}
	return humanize.Comma(v) + " shares"
}
