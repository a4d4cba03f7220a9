// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/filter"
	"github.com/tomtom215/casefinder/internal/index"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/models"
	"github.com/tomtom215/casefinder/internal/recommend"
	"github.com/tomtom215/casefinder/internal/records"
	"github.com/tomtom215/casefinder/internal/validation"
	"github.com/tomtom215/casefinder/internal/worker"
)

// Recommender serves the two similarity paths. *recommend.Engine implements it.
type Recommender interface {
	QueryByText(ctx context.Context, text string) ([]models.Recommendation, error)
	QueryByExistingEmbedding(ctx context.Context, id string) ([]models.Recommendation, error)
}

// CategoricalQuerier draws a random record matching predicates. *filter.Service implements it.
type CategoricalQuerier interface {
	Query(p filter.Predicates) (models.CategoricalMatch, bool)
}

// Dataset describes the loaded records. *records.Store implements it.
type Dataset interface {
	Count() int
	Dimension() int
	Regions(ctx context.Context, f records.RegionFilter) ([]records.RegionSummary, error)
}

// WorkerStatus reports the embedding worker state.
type WorkerStatus interface {
	State() worker.State
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	recommender  Recommender
	categorical  CategoricalQuerier
	dataset      Dataset
	worker       WorkerStatus
	queryTimeout time.Duration
}

// NewHandler builds a Handler. queryTimeout bounds how long a free-text
// request waits on the worker; zero means no bound beyond the request context.
func NewHandler(rec Recommender, cat CategoricalQuerier, data Dataset, w WorkerStatus, queryTimeout time.Duration) *Handler {
	return &Handler{
		recommender:  rec,
		categorical:  cat,
		dataset:      data,
		worker:       w,
		queryTimeout: queryTimeout,
	}
}

// Text handles POST /api/text. A questionUno wins over text.
func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	rw := newResponder(w, r)

	var req models.TextQueryRequest
	if !decodeBody(rw, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.Error(http.StatusBadRequest, verr.ToAPIError(), nil)
		return
	}

	ctx := r.Context()
	var (
		recs []models.Recommendation
		err  error
	)
	switch {
	case strings.TrimSpace(req.QuestionUno) != "":
		recs, err = h.recommender.QueryByExistingEmbedding(ctx, strings.TrimSpace(req.QuestionUno))
	case strings.TrimSpace(req.Text) != "":
		if h.queryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
			defer cancel()
		}
		recs, err = h.recommender.QueryByText(ctx, req.Text)
	default:
		rw.Error(http.StatusBadRequest, &models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "Either text or questionUno is required",
		}, nil)
		return
	}
	if err != nil {
		h.writeQueryError(rw, err)
		return
	}

	rw.Success(models.TextResult{Result: models.Texts(recs)}, len(recs))
}

func (h *Handler) writeQueryError(rw *responder, err error) {
	var (
		unknown  *recommend.UnknownIdentifierError
		encoding *encoder.EncodingError
		mismatch *index.DimensionMismatchError
	)
	switch {
	case errors.As(err, &unknown):
		rw.NotFound("Unknown questionUno: " + sanitizeLogValue(unknown.ID))
	case errors.Is(err, recommend.ErrEmptyQuery):
		rw.Error(http.StatusBadRequest, &models.APIError{Code: models.ErrCodeValidation, Message: "Query text is empty"}, nil)
	case errors.As(err, &encoding), errors.As(err, &mismatch):
		rw.ServiceUnavailable("Text encoder unavailable", err)
	case errors.Is(err, worker.ErrStopped):
		rw.ServiceUnavailable("Service is shutting down", err)
	case errors.Is(err, context.DeadlineExceeded):
		rw.ServiceUnavailable("Query timed out", err)
	case errors.Is(err, context.Canceled):
		logging.Ctx(rw.r.Context()).Debug().Msg("Client went away before the query finished")
	default:
		rw.Internal(err)
	}
}

// CategoricalQuery handles POST /api/categoricalQuery. The response is the
// bare {success, questionUno, text} object rather than the envelope.
func (h *Handler) CategoricalQuery(w http.ResponseWriter, r *http.Request) {
	rw := newResponder(w, r)

	var req models.CategoricalQueryRequest
	if !decodeBody(rw, &req) {
		return
	}
	normalizeCategorical(&req)
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.Error(http.StatusBadRequest, verr.ToAPIError(), nil)
		return
	}

	match, ok := h.categorical.Query(predicatesFrom(&req))
	if !ok {
		writeJSON(w, http.StatusOK, models.CategoricalQueryResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, models.CategoricalQueryResponse{
		Success:     true,
		QuestionUno: match.ID,
		Text:        match.Text,
	})
}

// normalizeCategorical turns empty arrays into nil so they read as absent
// predicates and skip validation.
func normalizeCategorical(req *models.CategoricalQueryRequest) {
	for _, s := range []*[]string{&req.Categories, &req.Ethnicities, &req.Genders, &req.States} {
		if len(*s) == 0 {
			*s = nil
		}
	}
	if len(req.Age) == 0 {
		req.Age = nil
	}
}

func predicatesFrom(req *models.CategoricalQueryRequest) filter.Predicates {
	p := filter.Predicates{
		Categories:  req.Categories,
		Ethnicities: req.Ethnicities,
		Genders:     req.Genders,
		States:      req.States,
	}
	if len(req.Age) == 2 {
		p.Age = &filter.AgeRange{Min: req.Age[0], Max: req.Age[1]}
	}
	return p
}

// Regions handles GET /api/regions. The optional category and state query
// parameters may be repeated or comma-separated.
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	rw := newResponder(w, r)

	q := r.URL.Query()
	regions, err := h.dataset.Regions(r.Context(), records.RegionFilter{
		Categories: queryList(q["category"]),
		States:     queryList(q["state"]),
	})
	if err != nil {
		rw.Error(http.StatusInternalServerError, &models.APIError{
			Code:    models.ErrCodeDatabase,
			Message: "Failed to summarize regions",
		}, err)
		return
	}
	if regions == nil {
		regions = []records.RegionSummary{}
	}
	rw.Success(regions, len(regions))
}

// queryList flattens repeated and comma-separated query values, dropping blanks.
func queryList(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Health handles GET /api/health. A stopped worker reports 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.worker.State()
	status := models.HealthStatus{
		Status:      "healthy",
		Records:     h.dataset.Count(),
		Dimension:   h.dataset.Dimension(),
		WorkerState: state.String(),
	}
	code := http.StatusOK
	if state == worker.StateStopped {
		status.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// decodeBody reads the capped request body into v. An empty body decodes as
// an empty object. It writes the error response and returns false on failure.
func decodeBody(rw *responder, v any) bool {
	body, err := io.ReadAll(rw.r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rw.Error(http.StatusRequestEntityTooLarge, &models.APIError{
				Code:    models.ErrCodeRequestTooLarge,
				Message: "Request body too large",
				Details: map[string]any{"limit_bytes": tooLarge.Limit},
			}, nil)
			return false
		}
		rw.BadRequest("Failed to read request body")
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return false
	}
	return true
}
