package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore serves a fixed workflow/version and delegates run reads to the
// in-memory recorder, so handlers run without a database.
type stubStore struct {
	workflow *Workflow
	version  *WorkflowVersion
	rec      *MemoryRecorder
	err      error
}

func (s *stubStore) GetWorkflow(_ context.Context, _ string) (*Workflow, error) {
	return s.workflow, s.err
}

func (s *stubStore) LatestVersion(_ context.Context, _ string) (*WorkflowVersion, error) {
	return s.version, s.err
}

func (s *stubStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rec.GetRun(ctx, runID)
}

// syncSubmitter runs jobs inline so tests observe terminal state immediately.
type syncSubmitter struct{}

func (syncSubmitter) Submit(job func(ctx context.Context)) error {
	job(context.Background())
	return nil
}

// denyAll rejects every run submission.
type denyAll struct{}

func (denyAll) AuthorizeRun(context.Context, string) error {
	return fmt.Errorf("insufficient credits")
}

func newTestService(version *WorkflowVersion) (*Service, *MemoryRecorder) {
	rec := NewMemoryRecorder()
	var wf *Workflow
	if version != nil {
		wf = &Workflow{
			ID:    version.WorkflowID,
			Name:  "Test Workflow",
			Nodes: version.Graph.Nodes,
			Edges: version.Graph.Edges,
		}
	}
	store := &stubStore{workflow: wf, version: version, rec: rec}
	svc := &Service{
		store:  store,
		rec:    rec,
		engine: NewEngine(testRegistry(&fakeNotifier{}), EngineOptions{}),
		jobs:   syncSubmitter{},
		auth:   AllowAll{},
	}
	return svc, rec
}

func setupRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	svc.LoadRoutes(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func TestHandleGetWorkflow_Success(t *testing.T) {
	svc, _ := newTestService(notificationVersion(true))
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/api/v1/workflows/wf-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result Workflow
	err := json.NewDecoder(w.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", result.ID)
	assert.Len(t, result.Nodes, 4)
	assert.Len(t, result.Edges, 3)
}

func TestHandleGetWorkflow_NotFound(t *testing.T) {
	svc, _ := newTestService(nil)
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/api/v1/workflows/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result map[string]string
	json.NewDecoder(w.Body).Decode(&result)
	assert.Equal(t, "workflow not found", result["message"])
}

func TestHandleExecuteWorkflow_SubmitAndPoll(t *testing.T) {
	svc, _ := newTestService(notificationVersion(true))
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/api/v1/workflows/wf-1/execute", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var submitted map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&submitted))
	require.NotEmpty(t, submitted["runId"])

	// The sync submitter has already finished the run; poll it.
	pollReq := httptest.NewRequest("GET", "/api/v1/runs/"+submitted["runId"], nil)
	pollW := httptest.NewRecorder()
	router.ServeHTTP(pollW, pollReq)

	require.Equal(t, http.StatusOK, pollW.Code)

	var run Run
	require.NoError(t, json.NewDecoder(pollW.Body).Decode(&run))
	assert.Equal(t, StatusSuccess, run.Status)
	assert.Len(t, run.NodeResults, 4)
	assert.Equal(t, StatusSuccess, run.NodeResults["check"].Status)
}

func TestHandleExecuteWorkflow_NotFound(t *testing.T) {
	svc, _ := newTestService(nil)
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/api/v1/workflows/missing/execute", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleExecuteWorkflow_EmptyGraphRejected(t *testing.T) {
	svc, _ := newTestService(&WorkflowVersion{ID: "v1", WorkflowID: "wf-1"})
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/api/v1/workflows/wf-1/execute", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleExecuteWorkflow_Unauthorized(t *testing.T) {
	svc, _ := newTestService(notificationVersion(true))
	svc.auth = denyAll{}
	router := setupRouter(svc)

	req := httptest.NewRequest("POST", "/api/v1/workflows/wf-1/execute", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var result map[string]string
	json.NewDecoder(w.Body).Decode(&result)
	assert.Contains(t, result["message"], "credits")
}

func TestHandleGetRun_NotFound(t *testing.T) {
	svc, _ := newTestService(notificationVersion(true))
	router := setupRouter(svc)

	req := httptest.NewRequest("GET", "/api/v1/runs/00000000-0000-0000-0000-000000000000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result map[string]string
	json.NewDecoder(w.Body).Decode(&result)
	assert.Equal(t, "run not found", result["message"])
}
