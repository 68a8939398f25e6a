package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/conflict"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/review"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

type fakeResolver struct {
	events      []models.Event
	stopOnError bool
}

func (f *fakeResolver) ResolveDocumentForEvent(_ context.Context, event models.Event) (*models.Resolution, error) {
	f.events = append(f.events, event)
	return &models.Resolution{EventID: event.ID, Status: models.ResolutionStatusNoDocument, Reason: "no candidates"}, nil
}

func (f *fakeResolver) ResolveBatch(_ context.Context, evts []models.Event, stopOnError bool) models.BatchResult {
	f.events = append(f.events, evts...)
	f.stopOnError = stopOnError
	return models.BatchResult{NoDocument: len(evts)}
}

type fakeReviewer struct {
	reviewer string
	status   models.MatchDecisionStatus
	limit    int
}

func (f *fakeReviewer) ListForEvent(_ context.Context, eventID string) ([]models.MatchDecision, error) {
	return []models.MatchDecision{{ID: "d-1", EventID: eventID}}, nil
}

func (f *fakeReviewer) ListQueue(_ context.Context, status models.MatchDecisionStatus, limit int) ([]models.MatchDecision, error) {
	f.status, f.limit = status, limit
	return []models.MatchDecision{}, nil
}

func (f *fakeReviewer) Confirm(_ context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error) {
	if id == "missing" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "match decision not found")
	}
	f.reviewer = req.Reviewer
	return &models.MatchDecision{ID: id, Status: models.MatchDecisionStatusConfirmed}, nil
}

func (f *fakeReviewer) Reject(_ context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error) {
	f.reviewer = req.Reviewer
	return &models.MatchDecision{ID: id, Status: models.MatchDecisionStatusRejected}, nil
}

func (f *fakeReviewer) Pin(_ context.Context, eventID string, req review.PinRequest) (*models.MatchDecision, error) {
	return &models.MatchDecision{ID: "pin", EventID: eventID, DocumentID: req.DocumentID, Method: models.MatchMethodManual, Status: models.MatchDecisionStatusConfirmed}, nil
}

type testAPI struct {
	echo     *echo.Echo
	resolver *fakeResolver
	reviewer *fakeReviewer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	resolver := &fakeResolver{}
	reviewer := &fakeReviewer{}
	api := newTestAPIWith(t, Deps{
		Resolver:  resolver,
		Ranker:    matching.NewRanker(matching.DefaultConfig()),
		Reviewer:  reviewer,
		Conflicts: conflict.NewResolver(conflict.DefaultConfig(), nil, testLogger),
	})
	api.resolver, api.reviewer = resolver, reviewer
	return api
}

func newTestAPIWith(t *testing.T, deps Deps) *testAPI {
	t.Helper()
	containerID := "handlers-test-" + uuid.NewString()
	_, err := NewContainer(containerID, deps)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger)
	e.Use(middleware.Context())

	api := e.Group("/api/v1", middleware.Container(containerID))
	NewResolutionHandler(testLogger).RegisterRoutes(api)
	NewDecisionHandler(testLogger).RegisterRoutes(api)
	NewConflictHandler(testLogger).RegisterRoutes(api)

	return &testAPI{echo: e}
}

func (a *testAPI) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestResolutionHandler_Resolve(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/resolve", `{"id":"evt-1","title":"Weekly Sync","end":"2025-11-10T15:00:00Z"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.Resolution](t, rec)
	assert.Equal(t, "evt-1", res.EventID)
	require.Len(t, api.resolver.events, 1)
	assert.Equal(t, "Weekly Sync", api.resolver.events[0].Title)
}

func TestResolutionHandler_ResolveValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/resolve", `{"title":"no id","end":"2025-11-10T15:00:00Z"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[middleware.ErrorResponse](t, rec)
	assert.Equal(t, "required", body.Meta["ID"])
	assert.NotEmpty(t, body.RequestID)

	rec = api.do(http.MethodPost, "/api/v1/resolve", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, api.resolver.events)
}

func TestResolutionHandler_ResolveBatch(t *testing.T) {
	api := newTestAPI(t)

	body := `{"events":[{"id":"a","end":"2025-11-10T15:00:00Z"},{"id":"b","end":"2025-11-10T16:00:00Z"}],"stop_on_error":true}`
	rec := api.do(http.MethodPost, "/api/v1/resolve/batch", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.BatchResult](t, rec)
	assert.Equal(t, 2, result.NoDocument)
	assert.True(t, api.resolver.stopOnError)

	rec = api.do(http.MethodPost, "/api/v1/resolve/batch", `{"events":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolutionHandler_Rank(t *testing.T) {
	api := newTestAPI(t)

	end := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)
	req := models.RankRequest{
		Event: models.Event{ID: "evt-1", Title: "Weekly Sync", End: end},
		Candidates: []models.DocumentCandidate{
			{ID: "doc-1", Name: "Weekly Sync - Notes", CreatedAt: end.Add(20 * time.Minute)},
		},
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	rec := api.do(http.MethodPost, "/api/v1/rank", string(payload), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.MatchResult](t, rec)
	assert.Equal(t, models.MatchStatusTimeMatch, result.Status)
	require.NotNil(t, result.Candidate)
	assert.Equal(t, "doc-1", result.Candidate.ID)
}

func TestDecisionHandler_Review(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/decisions/d-1/confirm", "", map[string]string{middleware.HeaderReviewer: "sam"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.MatchDecisionStatusConfirmed, decode[models.MatchDecision](t, rec).Status)
	assert.Equal(t, "sam", api.reviewer.reviewer)

	rec = api.do(http.MethodPost, "/api/v1/decisions/d-1/reject", `{"reviewer":"alex","note":"wrong meeting"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alex", api.reviewer.reviewer)

	rec = api.do(http.MethodPost, "/api/v1/decisions/missing/confirm", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[middleware.ErrorResponse](t, rec).Message, "match decision not found")
}

func TestDecisionHandler_Lists(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/events/evt-7/decisions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "evt-7", decode[[]models.MatchDecision](t, rec)[0].EventID)

	rec = api.do(http.MethodGet, "/api/v1/decisions?status=confirmed&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MatchDecisionStatusConfirmed, api.reviewer.status)
	assert.Equal(t, 5, api.reviewer.limit)

	rec = api.do(http.MethodGet, "/api/v1/decisions?limit=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionHandler_Pin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/events/evt-1/decisions/pin", `{"document_id":"doc-3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decision := decode[models.MatchDecision](t, rec)
	assert.Equal(t, "doc-3", decision.DocumentID)
	assert.True(t, decision.IsManualOverride())

	rec = api.do(http.MethodPost, "/api/v1/events/evt-1/decisions/pin", `{"document_id":"doc-3","url":"not a url"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConflictHandler(t *testing.T) {
	api := newTestAPI(t)

	body := `{"record":{"kind":"generic",
		"internal":{"id":"r-1","name":"Draft plan","modified_at":"2025-01-14T09:00:00Z"},
		"external":{"id":"x-1","name":"Final plan","modified_at":"2025-01-14T09:00:02Z"}}}`
	rec := api.do(http.MethodPost, "/api/v1/conflicts/resolve", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.ConflictResolution](t, rec)
	assert.True(t, res.Resolved)
	assert.Equal(t, models.ConflictWinnerExternal, res.Winner)
	assert.Equal(t, "Final plan", res.Result.Name)

	rec = api.do(http.MethodPost, "/api/v1/conflicts/resolve", `{"record":{"kind":"task"},"strategy":"coin_flip"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	detect := `{"internal":{"name":"a","modified_at":"2025-01-14T09:00:00Z"},"external":{"name":"b","modified_at":"2025-01-14T09:00:00.5Z"}}`
	rec = api.do(http.MethodPost, "/api/v1/conflicts/detect", detect, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.ConflictDetection](t, rec).Conflict)
}

func TestHandlers_MissingDependency(t *testing.T) {
	api := newTestAPIWith(t, Deps{Reviewer: &fakeReviewer{}})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{
			name:   "resolver not registered",
			method: http.MethodPost,
			path:   "/api/v1/resolve",
			body:   `{"id":"evt-1","title":"Weekly Sync","end":"2025-11-10T15:00:00Z"}`,
			status: http.StatusInternalServerError,
		},
		{
			name:   "conflict resolver not registered",
			method: http.MethodPost,
			path:   "/api/v1/conflicts/detect",
			body:   `{"internal":{"name":"a","modified_at":"2025-01-14T09:00:00Z"},"external":{"name":"b","modified_at":"2025-01-14T09:00:00.5Z"}}`,
			status: http.StatusInternalServerError,
		},
		{
			name:   "registered reviewer still serves",
			method: http.MethodGet,
			path:   "/api/v1/events/evt-1/decisions",
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusInternalServerError {
				assert.Contains(t, rec.Body.String(), "service unavailable")
			}
		})
	}
}

func TestHandlers_UnknownContainer(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger)
	api := e.Group("/api/v1", middleware.Container("handlers-test-unregistered-"+uuid.NewString()))
	NewDecisionHandler(testLogger).RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "service unavailable")
}
