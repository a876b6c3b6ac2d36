package workflow

import (
	"fmt"
	"strings"
)

// ToMermaid projects the workflow to a Mermaid stateDiagram-v2 text block.
//
// The projection runs in two passes over the top-level task map in lexical
// task-ID order. Pass 1 emits state declarations, composite-state blocks
// for parallel and loop operators, incoming dependency transitions, and
// start transitions from the initial pseudostate. Transitions touching a
// condition are deferred to pass 2, which emits them with True/False labels
// and closes every graph leaf with a transition to the final pseudostate.
// Transition emission is deduplicated by exact text, so projecting an
// unchanged workflow is byte-stable.
func (w *Workflow) ToMermaid() string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	emitted := make(map[string]bool)
	transition := func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		if !emitted[line] {
			emitted[line] = true
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	ids := w.sortedTaskIDs()

	// Pass 1: states, composites, plain transitions.
	for _, id := range ids {
		op := w.Tasks[id]
		if op.IsContainer() {
			w.writeComposite(&sb, op)
		} else if op.Description != "" {
			sb.WriteString(fmt.Sprintf("    state %q as %s\n", op.Description, id))
		}
		if op.Type != OperatorCondition {
			for _, dep := range op.Dependencies {
				if w.isConditionTarget(dep, id) {
					continue
				}
				transition("    %s --> %s", dep, id)
			}
		}
		if len(op.Dependencies) == 0 && (w.StartTask == "" || w.StartTask == id) {
			transition("    [*] --> %s", id)
		}
	}

	// Pass 2: condition routing, then terminal transitions for leaves.
	for _, id := range ids {
		op := w.Tasks[id]
		if op.Type != OperatorCondition {
			continue
		}
		for _, dep := range op.Dependencies {
			transition("    %s --> %s", dep, id)
		}
		if op.IfTrue != "" {
			transition("    %s --> %s : True", id, op.IfTrue)
		}
		if op.IfFalse != "" {
			transition("    %s --> %s : False", id, op.IfFalse)
		}
	}

	depended := make(map[string]bool)
	for _, id := range ids {
		for _, dep := range w.Tasks[id].Dependencies {
			depended[dep] = true
		}
	}
	for _, id := range ids {
		op := w.Tasks[id]
		if depended[id] {
			continue
		}
		// A condition whose branches both lead somewhere terminates
		// through them, never on its own.
		if op.Type == OperatorCondition && op.IfTrue != "" && op.IfFalse != "" {
			continue
		}
		transition("    %s --> [*]", id)
	}

	return sb.String()
}

// writeComposite renders the nested block for a parallel or loop operator:
// one sub-state per parallel branch separated by the parallel bar, or one
// sub-state per loop-body task.
func (w *Workflow) writeComposite(sb *strings.Builder, op *Operator) {
	sb.WriteString(fmt.Sprintf("    state %s {\n", op.TaskID))
	switch op.Type {
	case OperatorParallel:
		for i, name := range sortedKeys(op.Branches) {
			if i > 0 {
				sb.WriteString("        --\n")
			}
			sb.WriteString(fmt.Sprintf("        state \"Branch %d\" as %s\n", i+1, name))
		}
	case OperatorForEach, OperatorWhile:
		for _, body := range op.LoopBody {
			label := body.Description
			if label == "" {
				label = body.TaskID
			}
			sb.WriteString(fmt.Sprintf("        state %q as %s\n", label, body.TaskID))
		}
	}
	sb.WriteString("    }\n")
}

// isConditionTarget reports whether dep is a condition operator routing to
// taskID; that edge is emitted with a True/False label in pass 2 instead of
// as a plain dependency transition.
func (w *Workflow) isConditionTarget(dep, taskID string) bool {
	depOp := w.Tasks[dep]
	if depOp == nil || depOp.Type != OperatorCondition {
		return false
	}
	return depOp.IfTrue == taskID || depOp.IfFalse == taskID
}
