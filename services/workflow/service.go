package workflow

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store abstracts the read side of persistence for testability.
type Store interface {
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	LatestVersion(ctx context.Context, workflowID string) (*WorkflowVersion, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
}

// Submitter hands a run job to the host worker pool. Jobs receive a context
// carrying the pool's hard deadline.
type Submitter interface {
	Submit(job func(ctx context.Context)) error
}

// Service wires together the store, recorder, engine and worker pool for the
// workflow domain.
type Service struct {
	store  Store
	rec    Recorder
	engine *Engine
	jobs   Submitter
	auth   Authorizer
}

// NewService creates a Service backed by PostgreSQL, real notifiers and the
// given run worker pool.
func NewService(pool *pgxpool.Pool, jobs Submitter, mailer Notifier) *Service {
	repo := NewRepository(pool)
	registry := NewRegistry(Deps{
		HTTPClient: NewHTTPNodeClient(),
		Slack:      NewWebhookNotifier("text"),
		Discord:    NewWebhookNotifier("content"),
		Telegram:   NewWebhookNotifier("text"),
		Mailer:     mailer,
	})
	return &Service{
		store:  repo,
		rec:    repo,
		engine: NewEngine(registry, EngineOptions{}),
		jobs:   jobs,
		auth:   AllowAll{},
	}
}

// jsonMiddleware sets the Content-Type header to application/json.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// LoadRoutes registers workflow HTTP handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.PathPrefix("/").Subrouter()
	router.StrictSlash(false)
	router.Use(jsonMiddleware)

	router.HandleFunc("/workflows/{id}", s.HandleGetWorkflow).Methods("GET")
	router.HandleFunc("/workflows/{id}/execute", s.HandleExecuteWorkflow).Methods("POST")
	router.HandleFunc("/runs/{id}", s.HandleGetRun).Methods("GET")
}
