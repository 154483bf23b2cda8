package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInput_NoPredecessors(t *testing.T) {
	node := Node{ID: "start", Type: TypeStart}

	input := ResolveInput(node, map[string]*NodeResult{}, nil)

	assert.Nil(t, input)
}

func TestResolveInput_SinglePredecessorPassesRawOutput(t *testing.T) {
	node := Node{ID: "b"}
	edges := []Edge{{ID: "e1", Source: "a", Target: "b"}}
	results := map[string]*NodeResult{
		"a": {NodeID: "a", Status: StatusSuccess, Output: map[string]any{"value": 42.0}},
	}

	input := ResolveInput(node, results, edges)

	// No wrapping in the single-predecessor case.
	assert.Equal(t, map[string]any{"value": 42.0}, input)
}

func TestResolveInput_UnexecutedPredecessorCarriesNothing(t *testing.T) {
	node := Node{ID: "b"}
	edges := []Edge{{ID: "e1", Source: "a", Target: "b"}}
	results := map[string]*NodeResult{
		"a": {NodeID: "a", Status: StatusRunning, Output: nil},
	}

	assert.Nil(t, ResolveInput(node, results, edges))
}

func TestResolveInput_ConditionalBranchGating(t *testing.T) {
	ifOutput := map[string]any{"result": true, "output_index": 0, "condition_met": true}
	results := map[string]*NodeResult{
		"if": {NodeID: "if", Status: StatusSuccess, Output: ifOutput},
	}
	edges := []Edge{
		{ID: "e1", Source: "if", Target: "slack", SourceHandle: "output-0"},
		{ID: "e2", Source: "if", Target: "gmail", SourceHandle: "output-1"},
	}

	slackInput := ResolveInput(Node{ID: "slack"}, results, edges)
	gmailInput := ResolveInput(Node{ID: "gmail"}, results, edges)

	assert.Equal(t, ifOutput, slackInput)
	assert.Nil(t, gmailInput)
}

func TestResolveInput_TargetHandleFallback(t *testing.T) {
	output := map[string]any{"output_index": float64(1)}
	results := map[string]*NodeResult{
		"sw": {NodeID: "sw", Status: StatusSuccess, Output: output},
	}
	edges := []Edge{
		{ID: "e1", Source: "sw", Target: "n", TargetHandle: "output-1"},
	}

	assert.Equal(t, output, ResolveInput(Node{ID: "n"}, results, edges))
}

func TestResolveInput_BranchingOutputWithoutHandlePropagates(t *testing.T) {
	// An edge with no port tag is unconditional even when the source branches.
	output := map[string]any{"output_index": 0}
	results := map[string]*NodeResult{
		"if": {NodeID: "if", Status: StatusSuccess, Output: output},
	}
	edges := []Edge{{ID: "e1", Source: "if", Target: "n"}}

	assert.Equal(t, output, ResolveInput(Node{ID: "n"}, results, edges))
}

func TestResolveInput_MultiplePredecessorsMerge(t *testing.T) {
	out1 := map[string]any{"from": "a"}
	out2 := map[string]any{"from": "b"}
	results := map[string]*NodeResult{
		"a": {NodeID: "a", Status: StatusSuccess, Output: out1},
		"b": {NodeID: "b", Status: StatusSuccess, Output: out2},
	}
	edges := []Edge{
		{ID: "e1", Source: "a", Target: "join"},
		{ID: "e2", Source: "b", Target: "join"},
	}

	input := ResolveInput(Node{ID: "join"}, results, edges)

	merged, ok := input.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{out1, out2}, merged["merged_inputs"])
}

func TestResolveInput_MergeSkipsInactiveBranch(t *testing.T) {
	out1 := map[string]any{"output_index": 1}
	out2 := map[string]any{"from": "b"}
	results := map[string]*NodeResult{
		"if": {NodeID: "if", Status: StatusSuccess, Output: out1},
		"b":  {NodeID: "b", Status: StatusSuccess, Output: out2},
	}
	edges := []Edge{
		{ID: "e1", Source: "if", Target: "join", SourceHandle: "output-0"},
		{ID: "e2", Source: "b", Target: "join"},
	}

	// Only the unconditional edge carries data, so the input is unwrapped.
	assert.Equal(t, out2, ResolveInput(Node{ID: "join"}, results, edges))
}
