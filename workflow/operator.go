package workflow

import (
	"sort"

	"github.com/BaSui01/highway/types"
)

// OperatorType tags the closed family of operator variants.
type OperatorType string

const (
	// OperatorTask executes a function.
	OperatorTask OperatorType = "task"
	// OperatorActivity executes a long-running function outside the
	// normal transaction boundary.
	OperatorActivity OperatorType = "activity"
	// OperatorCondition branches on a boolean expression.
	OperatorCondition OperatorType = "condition"
	// OperatorWait pauses for a duration or until an absolute timestamp.
	OperatorWait OperatorType = "wait"
	// OperatorParallel fans out into named branches.
	OperatorParallel OperatorType = "parallel"
	// OperatorForEach iterates a loop body over a collection expression.
	OperatorForEach OperatorType = "foreach"
	// OperatorWhile iterates a loop body while a condition holds.
	OperatorWhile OperatorType = "while"
	// OperatorSwitch routes on a literal value.
	OperatorSwitch OperatorType = "switch"
	// OperatorJoin synchronizes on the outcomes of a named task set.
	OperatorJoin OperatorType = "join"
	// OperatorEmitEvent signals a named event with a payload.
	OperatorEmitEvent OperatorType = "emit_event"
	// OperatorWaitForEvent blocks until a named event arrives.
	OperatorWaitForEvent OperatorType = "wait_for_event"
)

// operatorTypes is the set of recognized tags, used to reject unknown tags
// during deserialization.
var operatorTypes = map[OperatorType]bool{
	OperatorTask:         true,
	OperatorActivity:     true,
	OperatorCondition:    true,
	OperatorWait:         true,
	OperatorParallel:     true,
	OperatorForEach:      true,
	OperatorWhile:        true,
	OperatorSwitch:       true,
	OperatorJoin:         true,
	OperatorEmitEvent:    true,
	OperatorWaitForEvent: true,
}

// JoinMode defines how a join operator combines member outcomes.
type JoinMode string

const (
	// JoinAllOf is ready when all members have finished, regardless of outcome.
	JoinAllOf JoinMode = "all_of"
	// JoinAnyOf is ready when any member has finished.
	JoinAnyOf JoinMode = "any_of"
	// JoinAllSuccess is ready when all members have succeeded.
	JoinAllSuccess JoinMode = "all_success"
	// JoinOneSuccess is ready when at least one member has succeeded.
	JoinOneSuccess JoinMode = "one_success"
)

// Operator is a single node in the workflow graph. The Type tag selects the
// variant; variant-specific fields are mutually exclusive and only the
// fields belonging to the tagged variant are populated.
type Operator struct {
	TaskID        string         `json:"task_id" yaml:"task_id"`
	Type          OperatorType   `json:"operator_type" yaml:"operator_type"`
	Dependencies  []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	RetryPolicy   *RetryPolicy   `json:"retry_policy,omitempty" yaml:"retry_policy,omitempty"`
	TimeoutPolicy *TimeoutPolicy `json:"timeout_policy,omitempty" yaml:"timeout_policy,omitempty"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	OnSuccess     string         `json:"on_success_task_id,omitempty" yaml:"on_success_task_id,omitempty"`
	OnFailure     string         `json:"on_failure_task_id,omitempty" yaml:"on_failure_task_id,omitempty"`
	// InternalLoopTask marks operators produced inside a ForEach/While
	// body. It is assigned by the builder, never set by callers, and
	// exempts the task from automatic dependency injection by enclosing
	// parallel/condition scopes.
	InternalLoopTask bool `json:"is_internal_loop_task,omitempty" yaml:"is_internal_loop_task,omitempty"`
	// ResultKey names the shared-context slot receiving the task output.
	ResultKey string `json:"result_key,omitempty" yaml:"result_key,omitempty"`

	// Task / Activity fields.
	Function string         `json:"function,omitempty" yaml:"function,omitempty"`
	Args     []any          `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`

	// Condition / While fields. While reuses Condition for its loop test.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	IfTrue    string `json:"if_true,omitempty" yaml:"if_true,omitempty"`
	IfFalse   string `json:"if_false,omitempty" yaml:"if_false,omitempty"`

	// Wait fields.
	WaitFor *Duration `json:"wait_for,omitempty" yaml:"wait_for,omitempty"`

	// Parallel fields.
	Branches map[string][]string `json:"branches,omitempty" yaml:"branches,omitempty"`
	Timeout  *Duration           `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ForEach / While fields.
	Items    string      `json:"items,omitempty" yaml:"items,omitempty"`
	LoopBody []*Operator `json:"loop_body,omitempty" yaml:"loop_body,omitempty"`

	// Switch fields.
	SwitchOn string            `json:"switch_on,omitempty" yaml:"switch_on,omitempty"`
	Cases    map[string]string `json:"cases,omitempty" yaml:"cases,omitempty"`
	Default  string            `json:"default,omitempty" yaml:"default,omitempty"`

	// Join fields.
	JoinTasks []string `json:"join_tasks,omitempty" yaml:"join_tasks,omitempty"`
	JoinMode  JoinMode `json:"join_mode,omitempty" yaml:"join_mode,omitempty"`

	// EmitEvent / WaitForEvent fields.
	EventName      string         `json:"event_name,omitempty" yaml:"event_name,omitempty"`
	Payload        map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
	TimeoutSeconds int64          `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

func newOperator(taskID string, typ OperatorType) *Operator {
	return &Operator{TaskID: taskID, Type: typ}
}

// IsContainer reports whether the operator owns nested sub-structure that
// the diagram projector renders as a composite state.
func (op *Operator) IsContainer() bool {
	switch op.Type {
	case OperatorParallel, OperatorForEach, OperatorWhile:
		return true
	}
	return false
}

// decodeCheck rejects unknown tags and missing variant-required fields.
// Reference resolution is the validator's job; this only covers the shape
// of a single operator.
func (op *Operator) decodeCheck() error {
	if op.TaskID == "" {
		return types.NewError(types.ErrDecode, "operator missing task_id")
	}
	if !operatorTypes[op.Type] {
		return types.NewError(types.ErrDecode, "unrecognized operator type %q", op.Type).WithTask(op.TaskID)
	}
	switch op.Type {
	case OperatorTask, OperatorActivity:
		if op.Function == "" {
			return types.NewError(types.ErrDecode, "%s operator requires function", op.Type).WithTask(op.TaskID)
		}
	case OperatorCondition:
		if op.Condition == "" {
			return types.NewError(types.ErrDecode, "condition operator requires condition").WithTask(op.TaskID)
		}
	case OperatorWait:
		if op.WaitFor == nil {
			return types.NewError(types.ErrDecode, "wait operator requires wait_for").WithTask(op.TaskID)
		}
	case OperatorForEach:
		if op.Items == "" {
			return types.NewError(types.ErrDecode, "foreach operator requires items").WithTask(op.TaskID)
		}
	case OperatorWhile:
		if op.Condition == "" {
			return types.NewError(types.ErrDecode, "while operator requires condition").WithTask(op.TaskID)
		}
	case OperatorSwitch:
		if op.SwitchOn == "" {
			return types.NewError(types.ErrDecode, "switch operator requires switch_on").WithTask(op.TaskID)
		}
	case OperatorEmitEvent, OperatorWaitForEvent:
		if op.EventName == "" {
			return types.NewError(types.ErrDecode, "%s operator requires event_name", op.Type).WithTask(op.TaskID)
		}
	}
	for _, body := range op.LoopBody {
		if err := body.decodeCheck(); err != nil {
			return err
		}
	}
	return nil
}

// normalizeDeps deduplicates and sorts a dependency list. Empty lists
// collapse to nil so that serialized and freshly-built workflows compare
// equal.
func normalizeDeps(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(deps))
	out := deps[:0]
	for _, d := range deps {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// addDependency appends dep if not already present, keeping the list
// deduplicated and sorted.
func (op *Operator) addDependency(dep string) {
	op.Dependencies = normalizeDeps(append(op.Dependencies, dep))
}
