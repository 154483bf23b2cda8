package workflow

import (
	"context"
	"sync"
)

// Recorder persists run and node state transitions. Every call is one
// synchronous write, so a reader polling the run between calls observes
// monotonic partial progress without any push channel.
//
// The engine is the only writer for a given run id; implementations need no
// cross-run coordination beyond that.
type Recorder interface {
	// Begin persists the freshly created run, graph snapshot included.
	Begin(ctx context.Context, run *Run) error
	// NodeStart transitions a node to running with its resolved input.
	NodeStart(ctx context.Context, run *Run, nodeID string, input any) error
	// NodeEnd completes a node with its output, status and optional error.
	NodeEnd(ctx context.Context, run *Run, nodeID string, output any, status, errMsg string) error
	// Finish transitions the run to a terminal status.
	Finish(ctx context.Context, run *Run, status string) error
}

// MemoryRecorder keeps runs in memory. It backs tests and credential-free
// demo deployments; the Postgres Repository is the production recorder.
type MemoryRecorder struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{runs: make(map[string]*Run)}
}

func (m *MemoryRecorder) Begin(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryRecorder) NodeStart(_ context.Context, run *Run, nodeID string, input any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.startNode(nodeID, input)
	return nil
}

func (m *MemoryRecorder) NodeEnd(_ context.Context, run *Run, nodeID string, output any, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.endNode(nodeID, output, status, errMsg)
	return nil
}

func (m *MemoryRecorder) Finish(_ context.Context, run *Run, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.finish(status)
	return nil
}

// GetRun returns the current state of a run, or nil when unknown.
func (m *MemoryRecorder) GetRun(_ context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	// Shallow-copy the result map so pollers do not race the writer.
	results := make(map[string]*NodeResult, len(run.NodeResults))
	for k, v := range run.NodeResults {
		nr := *v
		results[k] = &nr
	}
	snapshot := *run
	snapshot.NodeResults = results
	return &snapshot, nil
}
