package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
	"github.com/luminasar/luminasar/internal/pipeline"
)

type stubService struct {
	runResult   *pipeline.GenerateResult
	runErr      error
	auditReport *pipeline.AuditReport
	auditErr    error
	runCalls    int
}

func (s *stubService) Run(_ context.Context, _ string) (*pipeline.GenerateResult, error) {
	s.runCalls++
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.runResult, nil
}

func (s *stubService) Audit(_ context.Context, _ string) (*pipeline.AuditReport, error) {
	if s.auditErr != nil {
		return nil, s.auditErr
	}
	return s.auditReport, nil
}

type stubStore struct {
	narratives map[string]*model.Narrative
	byCase     map[string]*model.Narrative
	statusSet  model.NarrativeStatus
}

func (s *stubStore) GetNarrative(_ context.Context, narrativeID string) (*model.Narrative, error) {
	if n, ok := s.narratives[narrativeID]; ok {
		return n, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubStore) GetNarrativeByCase(_ context.Context, caseID string) (*model.Narrative, error) {
	if n, ok := s.byCase[caseID]; ok {
		return n, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubStore) UpdateNarrativeStatus(_ context.Context, narrativeID string, status model.NarrativeStatus) error {
	if _, ok := s.narratives[narrativeID]; !ok {
		return common.ErrNotFound
	}
	s.statusSet = status
	return nil
}

func newTestServer(service *stubService, store *stubStore) *httptest.Server {
	if store.narratives == nil {
		store.narratives = map[string]*model.Narrative{}
	}
	if store.byCase == nil {
		store.byCase = map[string]*model.Narrative{}
	}
	return httptest.NewServer(New(service, store, ":0").Router())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&stubService{}, &stubStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestGenerateRunsPipeline(t *testing.T) {
	service := &stubService{
		runResult: &pipeline.GenerateResult{
			NarrativeID:   "narr-1",
			NarrativeText: "narrative text",
			RiskScore:     6.5,
			Typologies:    []string{"structuring"},
			AuditSteps:    6,
		},
	}
	ts := newTestServer(service, &stubStore{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sar/generate", `{"case_id":"case-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "narr-1", body["narrative_id"])
	assert.Equal(t, 6.5, body["risk_score"])
	assert.Equal(t, true, body["regenerated"])
	assert.Equal(t, 1, service.runCalls)
}

func TestGenerateReturnsExistingNarrative(t *testing.T) {
	service := &stubService{}
	store := &stubStore{
		byCase: map[string]*model.Narrative{
			"case-1": {
				ID:     "narr-existing",
				CaseID: "case-1",
				Text:   "previously generated",
				Status: model.NarrativeStatusValidated,
			},
		},
	}
	ts := newTestServer(service, store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sar/generate", `{"case_id":"case-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "narr-existing", body["narrative_id"])
	assert.Equal(t, false, body["regenerated"])
	assert.Equal(t, 0, service.runCalls)
}

func TestGenerateForceRegenerate(t *testing.T) {
	service := &stubService{
		runResult: &pipeline.GenerateResult{NarrativeID: "narr-new", NarrativeText: "fresh"},
	}
	store := &stubStore{
		byCase: map[string]*model.Narrative{
			"case-1": {ID: "narr-existing", CaseID: "case-1", Text: "old"},
		},
	}
	ts := newTestServer(service, store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sar/generate", `{"case_id":"case-1","force_regenerate":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "narr-new", body["narrative_id"])
	assert.Equal(t, 1, service.runCalls)
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: common.ErrNotFound, wantStatus: http.StatusNotFound},
		{
			name:       "validation failure",
			err:        common.NewValidationError(common.ReasonHallucinationDetected, []string{"amount ₹75,00,000 not found in source data"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{name: "generation outage", err: common.ErrExternalUnavailable, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(&stubService{runErr: tt.err}, &stubStore{})
			defer ts.Close()

			resp := postJSON(t, ts.URL+"/api/sar/generate", `{"case_id":"case-1"}`)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	ts := newTestServer(&stubService{}, &stubStore{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sar/generate", `{"case_id":""}`)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/sar/generate", `not json`)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetNarrative(t *testing.T) {
	store := &stubStore{
		narratives: map[string]*model.Narrative{
			"narr-1": {
				ID:          "narr-1",
				CaseID:      "case-1",
				Text:        "the narrative",
				Status:      model.NarrativeStatusValidated,
				GeneratedAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	ts := newTestServer(&stubService{}, store)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/sar/narr-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "the narrative", body["narrative_text"])
	assert.Equal(t, "validated", body["status"])

	resp, err = http.Get(ts.URL + "/api/sar/missing")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuditEndpoint(t *testing.T) {
	service := &stubService{
		auditReport: &pipeline.AuditReport{
			ChainValid: false,
			IntegrityError: (&common.ChainIntegrityError{
				Index:  2,
				Reason: "stored hash does not match recomputation",
			}).Error(),
			Steps: []model.AuditRecord{
				{Position: 0, StepName: "fetch_data", Confidence: 1.0, LoggedAt: time.Now().UTC()},
			},
		},
	}
	ts := newTestServer(service, &stubStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/sar/narr-1/audit")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["chain_valid"])
	assert.Contains(t, body["integrity_error"], "record 2")

	steps, ok := body["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)
}

func TestApproveNarrative(t *testing.T) {
	store := &stubStore{
		narratives: map[string]*model.Narrative{
			"narr-1": {ID: "narr-1", Status: model.NarrativeStatusValidated},
			"narr-2": {ID: "narr-2", Status: model.NarrativeStatusDraft},
		},
	}
	ts := newTestServer(&stubService{}, store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/sar/narr-1/approve", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", decodeBody(t, resp)["status"])
	assert.Equal(t, model.NarrativeStatusApproved, store.statusSet)

	// Only validated narratives can be approved.
	resp = postJSON(t, ts.URL+"/api/sar/narr-2/approve", "")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/sar/missing/approve", "")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
