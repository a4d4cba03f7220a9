// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/filter"
	"github.com/tomtom215/casefinder/internal/models"
	"github.com/tomtom215/casefinder/internal/recommend"
	"github.com/tomtom215/casefinder/internal/records"
	"github.com/tomtom215/casefinder/internal/worker"
)

type fakeRecommender struct {
	recs []models.Recommendation
	err  error

	gotText string
	gotID   string
	hadDL   bool
}

func (f *fakeRecommender) QueryByText(ctx context.Context, text string) ([]models.Recommendation, error) {
	f.gotText = text
	_, f.hadDL = ctx.Deadline()
	return f.recs, f.err
}

func (f *fakeRecommender) QueryByExistingEmbedding(_ context.Context, id string) ([]models.Recommendation, error) {
	f.gotID = id
	return f.recs, f.err
}

type fakeCategorical struct {
	match models.CategoricalMatch
	ok    bool
	got   filter.Predicates
}

func (f *fakeCategorical) Query(p filter.Predicates) (models.CategoricalMatch, bool) {
	f.got = p
	return f.match, f.ok
}

type fakeDataset struct {
	regions []records.RegionSummary
	err     error
	filter  records.RegionFilter
}

func (fakeDataset) Count() int     { return 3 }
func (fakeDataset) Dimension() int { return 4 }
func (f *fakeDataset) Regions(_ context.Context, rf records.RegionFilter) ([]records.RegionSummary, error) {
	f.filter = rf
	return f.regions, f.err
}

type fakeWorker struct{ state worker.State }

func (f fakeWorker) State() worker.State { return f.state }

type testServer struct {
	rec     *fakeRecommender
	cat     *fakeCategorical
	data    *fakeDataset
	worker  *fakeWorker
	handler http.Handler
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	ts := &testServer{
		rec: &fakeRecommender{recs: []models.Recommendation{
			{ID: "b", Text: "second", Distance: 0.1},
			{ID: "c", Text: "third", Distance: 0.2},
		}},
		cat:    &fakeCategorical{},
		data:   &fakeDataset{},
		worker: &fakeWorker{state: worker.StateIdle},
	}
	if cfg.Middleware == nil {
		cfg.Middleware = &MiddlewareConfig{CORSAllowedOrigins: []string{"*"}, RateLimitDisabled: true}
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	h := NewHandler(ts.rec, ts.cat, ts.data, ts.worker, time.Minute)
	ts.handler = NewRouter(cfg, h)
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestText_ByText(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodPost, "/api/text", `{"text":"my landlord kept the deposit"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool              `json:"success"`
		Data    models.TextResult `json:"data"`
		Meta    models.Metadata   `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if got := strings.Join(resp.Data.Result, ","); got != "second,third" {
		t.Errorf("result = %q", got)
	}
	if resp.Meta.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Meta.Count)
	}
	if resp.Meta.RequestID == "" {
		t.Error("metadata is missing the request ID")
	}
	if ts.rec.gotText != "my landlord kept the deposit" {
		t.Errorf("text passed = %q", ts.rec.gotText)
	}
	if !ts.rec.hadDL {
		t.Error("free-text query should carry the configured deadline")
	}
}

func TestText_QuestionUnoTakesPrecedence(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodPost, "/api/text/", `{"text":"ignored","questionUno":"a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ts.rec.gotID != "a" {
		t.Errorf("questionUno passed = %q, want a", ts.rec.gotID)
	}
	if ts.rec.gotText != "" {
		t.Error("text path should not run when questionUno is set")
	}
}

func TestText_MissingInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"empty object", "{}"},
		{"blank text", `{"text":"   "}`},
		{"blank questionUno", `{"questionUno":" "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, RouterConfig{})
			rec := ts.do(http.MethodPost, "/api/text", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success || resp.Error == nil || resp.Error.Code != models.ErrCodeValidation {
				t.Errorf("unexpected envelope %+v", resp)
			}
		})
	}
}

func TestText_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown id",
			body:       `{"questionUno":"zzz"}`,
			err:        &recommend.UnknownIdentifierError{ID: "zzz"},
			wantStatus: http.StatusNotFound,
			wantCode:   models.ErrCodeNotFound,
		},
		{
			name:       "encoder failure",
			body:       `{"text":"hello"}`,
			err:        fmt.Errorf("encode query: %w", &encoder.EncodingError{Backend: "hash", Err: errors.New("boom")}),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   models.ErrCodeServiceUnavailable,
		},
		{
			name:       "worker stopped",
			body:       `{"text":"hello"}`,
			err:        worker.ErrStopped,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   models.ErrCodeServiceUnavailable,
		},
		{
			name:       "timeout",
			body:       `{"text":"hello"}`,
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   models.ErrCodeServiceUnavailable,
		},
		{
			name:       "panic in worker",
			body:       `{"text":"hello"}`,
			err:        fmt.Errorf("%w: nil map", worker.ErrPanic),
			wantStatus: http.StatusInternalServerError,
			wantCode:   models.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, RouterConfig{})
			ts.rec.err = tt.err

			rec := ts.do(http.MethodPost, "/api/text", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestText_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodPost, "/api/text", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error.Code != models.ErrCodeBadRequest {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestText_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, RouterConfig{MaxBodyBytes: 64})

	body := `{"text":"` + strings.Repeat("x", 200) + `"}`
	rec := ts.do(http.MethodPost, "/api/text", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error.Code != models.ErrCodeRequestTooLarge {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestText_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodGet, "/api/text", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCategoricalQuery(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		ts := newTestServer(t, RouterConfig{})
		ts.cat.match = models.CategoricalMatch{ID: "q7", Text: "Can I break my lease?"}
		ts.cat.ok = true

		rec := ts.do(http.MethodPost, "/api/categoricalQuery",
			`{"categories":["Housing"],"age":[18,30],"ethnicities":[],"genders":["Female"],"states":["TX"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp models.CategoricalQueryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Success || resp.QuestionUno != "q7" || resp.Text != "Can I break my lease?" {
			t.Errorf("response = %+v", resp)
		}

		got := ts.cat.got
		if got.Age == nil || got.Age.Min != 18 || got.Age.Max != 30 {
			t.Errorf("age = %+v", got.Age)
		}
		if got.Ethnicities != nil {
			t.Errorf("empty ethnicities should be absent, got %v", got.Ethnicities)
		}
		if len(got.Categories) != 1 || len(got.Genders) != 1 || len(got.States) != 1 {
			t.Errorf("predicates = %+v", got)
		}
	})

	t.Run("no match is success false", func(t *testing.T) {
		ts := newTestServer(t, RouterConfig{})

		rec := ts.do(http.MethodPost, "/api/categoricalQuery", `{"categories":["Nothing"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != `{"success":false}` {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("empty arrays mean no predicates", func(t *testing.T) {
		ts := newTestServer(t, RouterConfig{})
		ts.cat.ok = true

		rec := ts.do(http.MethodPost, "/api/categoricalQuery",
			`{"categories":[],"age":[],"ethnicities":[],"genders":[],"states":[]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		got := ts.cat.got
		if got.Age != nil || got.Categories != nil || got.Genders != nil || got.States != nil {
			t.Errorf("predicates = %+v, want all absent", got)
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"age with one element", `{"age":[30]}`},
		{"age reversed", `{"age":[40,20]}`},
		{"negative age", `{"age":[-1,20]}`},
		{"wrong type", `{"categories":"Housing"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, RouterConfig{})
			rec := ts.do(http.MethodPost, "/api/categoricalQuery", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCategoricalQuery_WithFilterService(t *testing.T) {
	src := sliceSource{
		{ID: "q1", Text: "Eviction notice\n---\nmore", Category: "Housing", State: "TX"},
		{ID: "q2", Text: "Custody ###", Category: "Family", State: "CA"},
	}
	h := NewHandler(&fakeRecommender{}, filter.New(src), &fakeDataset{}, &fakeWorker{}, 0)
	router := NewRouter(RouterConfig{}, h)

	req := httptest.NewRequest(http.MethodPost, "/api/categoricalQuery", strings.NewReader(`{"states":["TX"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp models.CategoricalQueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.QuestionUno != "q1" || resp.Text != "Eviction notice" {
		t.Errorf("response = %+v", resp)
	}
}

type sliceSource []records.Record

func (s sliceSource) Records() []records.Record { return s }

func TestRegions(t *testing.T) {
	age := 41.5
	ts := newTestServer(t, RouterConfig{})
	ts.data.regions = []records.RegionSummary{
		{FIPS: "01001", State: "AL", County: "Autauga", MedianAge: &age, Usage: 3},
	}

	rec := ts.do(http.MethodGet, "/api/regions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data []records.RegionSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].FIPS != "01001" || resp.Data[0].MedianIncome != nil {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestRegions_Filters(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodGet, "/api/regions?category=Housing,%20Family&category=&state=Texas&state=Ohio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := ts.data.filter
	if strings.Join(got.Categories, "|") != "Housing|Family" {
		t.Errorf("categories = %q", got.Categories)
	}
	if strings.Join(got.States, "|") != "Texas|Ohio" {
		t.Errorf("states = %q", got.States)
	}
}

func TestRegions_DatabaseError(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	ts.data.err = records.ErrNoDatabase

	rec := ts.do(http.MethodGet, "/api/regions", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error.Code != models.ErrCodeDatabase {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state      worker.State
		wantStatus int
		wantText   string
	}{
		{worker.StateIdle, http.StatusOK, "healthy"},
		{worker.StateBusy, http.StatusOK, "healthy"},
		{worker.StateStopped, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			ts := newTestServer(t, RouterConfig{})
			ts.worker.state = tt.state

			rec := ts.do(http.MethodGet, "/api/health", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var got models.HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			want := models.HealthStatus{Status: tt.wantText, Records: 3, Dimension: 4, WorkerState: tt.state.String()}
			if got != want {
				t.Errorf("health = %+v, want %+v", got, want)
			}
		})
	}
}
