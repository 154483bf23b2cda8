package workflow

import (
	"context"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// HandleGetWorkflow loads a workflow definition and returns it as JSON.
func (s *Service) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Getting workflow", "id", id)

	wf, err := s.store.GetWorkflow(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get workflow", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if wf == nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(wf)
}

// HandleExecuteWorkflow snapshots the workflow's latest version, creates a
// run and hands it to the worker pool. The response is the run id; callers
// poll the run endpoint for progress.
func (s *Service) HandleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Executing workflow", "id", id)

	if err := s.auth.AuthorizeRun(r.Context(), id); err != nil {
		slog.Warn("Run submission rejected", "id", id, "error", err)
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	version, err := s.store.LatestVersion(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get workflow version", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if version == nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	run, err := s.engine.Prepare(r.Context(), version, s.rec)
	if err != nil {
		slog.Error("Failed to start run", "id", id, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.jobs.Submit(func(ctx context.Context) {
		s.engine.Process(ctx, run, s.rec)
	}); err != nil {
		slog.Error("Failed to submit run job", "run", run.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "run queue full")
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"runId":  run.ID,
		"status": run.Status,
	})
}

// HandleGetRun returns the current state of a run, node results included.
// Repeated polls observe monotonic progress while the run executes.
func (s *Service) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(run)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
