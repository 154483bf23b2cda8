package workflow

import (
	"strconv"
	"strings"
)

// ResolveInput computes the input for a node from its predecessors' recorded
// outputs. Incoming edges are considered in edge-array order:
//   - edges whose source has not produced an output yet carry nothing;
//   - if the source output carries an "output_index" and the edge's handle
//     names a port ("output-<n>"), data flows only when the indices match
//     (conditional branch gating);
//   - otherwise the edge propagates unconditionally.
//
// Zero inbound values yield nil. Exactly one is passed through unchanged, so
// a single-predecessor node sees the raw producer output. Two or more are
// wrapped as {"merged_inputs": [...]} in edge order.
func ResolveInput(node Node, results map[string]*NodeResult, edges []Edge) any {
	var inputs []any

	for _, e := range edges {
		if e.Target != node.ID {
			continue
		}
		res := results[e.Source]
		if res == nil || res.Output == nil {
			continue
		}

		if idx, branching := outputIndex(res.Output); branching {
			if port, tagged := edgePort(e); tagged && port != idx {
				continue
			}
		}
		inputs = append(inputs, res.Output)
	}

	switch len(inputs) {
	case 0:
		return nil
	case 1:
		return inputs[0]
	default:
		return map[string]any{"merged_inputs": inputs}
	}
}

// outputIndex reports the active output port signalled by a branching node's
// output, if any.
func outputIndex(output any) (int, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := m["output_index"]
	if !ok {
		return 0, false
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// edgePort parses the "output-<n>" port tag off an edge, preferring the
// source handle. Untagged edges propagate unconditionally.
func edgePort(e Edge) (int, bool) {
	handle := e.SourceHandle
	if handle == "" {
		handle = e.TargetHandle
	}
	n, ok := strings.CutPrefix(handle, "output-")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(n)
	if err != nil {
		return 0, false
	}
	return idx, true
}
