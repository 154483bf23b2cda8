package workflow

import "time"

// Run and node statuses. A node is implicitly pending until its first
// transition; a run is created already running.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Workflow represents a persisted workflow definition with its graph of nodes and edges.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkflowVersion is an immutable snapshot of a workflow's graph. Runs are
// always launched against a version, never against the live workflow row.
type WorkflowVersion struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Graph      Graph     `json:"graph"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Graph is the node/edge structure the engine executes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a single step in a workflow graph. Type selects the
// executor; Data carries the node's configuration.
type Node struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Data NodeData `json:"data"`
}

// NodeData holds the display and configuration data for a node. Parameters is
// the executor-facing configuration; Metadata is editor-facing and ignored by
// the engine except as a fallback lookup location for legacy graphs.
type NodeData struct {
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Edge represents a directed data-flow connection between two nodes.
// SourceHandle/TargetHandle name the connected ports; branching nodes tag
// their outgoing edges "output-0", "output-1", ... so the router can gate
// them on the producer's active output index.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Run is one execution attempt of a workflow version. It owns a frozen copy
// of the graph taken at launch time, so edits to the workflow during the run
// cannot affect it.
type Run struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflowId"`
	VersionID   string                 `json:"versionId"`
	Status      string                 `json:"status"`
	Graph       Graph                  `json:"graph"`
	NodeResults map[string]*NodeResult `json:"nodeResults"`
	StartedAt   time.Time              `json:"startedAt"`
	FinishedAt  *time.Time             `json:"finishedAt,omitempty"`
}

// NodeResult records input, output, status and timing for one node in one run.
// It is created on the running transition and updated in place on completion.
type NodeResult struct {
	NodeID          string     `json:"nodeId"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	Input           any        `json:"input"`
	Output          any        `json:"output"`
	ExecutionTimeMs int64      `json:"executionTimeMs,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// NewRun creates a running Run over the given frozen graph.
func NewRun(id, workflowID, versionID string, graph Graph) *Run {
	return &Run{
		ID:          id,
		WorkflowID:  workflowID,
		VersionID:   versionID,
		Status:      StatusRunning,
		Graph:       graph,
		NodeResults: make(map[string]*NodeResult, len(graph.Nodes)),
		StartedAt:   time.Now().UTC(),
	}
}

// startNode transitions a node to running and returns its result record.
func (r *Run) startNode(nodeID string, input any) *NodeResult {
	nr := &NodeResult{
		NodeID:    nodeID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
		Input:     input,
	}
	r.NodeResults[nodeID] = nr
	return nr
}

// endNode completes a node's result record in place.
func (r *Run) endNode(nodeID string, output any, status, errMsg string) *NodeResult {
	nr := r.NodeResults[nodeID]
	if nr == nil {
		nr = &NodeResult{NodeID: nodeID, StartedAt: time.Now().UTC()}
		r.NodeResults[nodeID] = nr
	}
	now := time.Now().UTC()
	nr.Status = status
	nr.Output = output
	nr.Error = errMsg
	nr.FinishedAt = &now
	nr.ExecutionTimeMs = now.Sub(nr.StartedAt).Milliseconds()
	return nr
}

// finish transitions the run itself to a terminal status.
func (r *Run) finish(status string) {
	now := time.Now().UTC()
	r.Status = status
	r.FinishedAt = &now
}
