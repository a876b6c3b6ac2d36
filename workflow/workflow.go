package workflow

import (
	"sort"
	"time"

	"github.com/BaSui01/highway/types"
)

// Workflow is the validated, immutable description of a task graph. It is
// mutable only through the Builder; once Build returns, callers must treat
// the value as read-only, after which it is safe to share across goroutines
// for serialization and projection.
type Workflow struct {
	// ID is a stable identifier assigned by the builder (UUID v4 unless
	// supplied by the caller).
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Tasks maps task IDs to top-level operators. Loop-body operators are
	// nested inside their owning ForEach/While operator and do not appear
	// here; FlattenTasks folds them in.
	Tasks     map[string]*Operator `json:"tasks" yaml:"tasks"`
	Variables map[string]any       `json:"variables,omitempty" yaml:"variables,omitempty"`
	StartTask string               `json:"start_task,omitempty" yaml:"start_task,omitempty"`

	// Schedule metadata, interpreted by the downstream executor.
	Schedule      string     `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	Catchup       bool       `json:"catchup,omitempty" yaml:"catchup,omitempty"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	MaxActiveRuns int        `json:"max_active_runs,omitempty" yaml:"max_active_runs,omitempty"`

	DefaultRetryPolicy *RetryPolicy `json:"default_retry_policy,omitempty" yaml:"default_retry_policy,omitempty"`
}

// NewWorkflow creates an empty workflow shell with the default version.
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		Name:    name,
		Version: "1.0.0",
		Tasks:   make(map[string]*Operator),
	}
}

// Task returns the top-level operator with the given ID, or nil.
func (w *Workflow) Task(taskID string) *Operator {
	return w.Tasks[taskID]
}

// FlattenTasks returns every operator in the workflow keyed by task ID,
// including operators nested inside loop bodies. An error is returned when
// two operators share an ID.
func (w *Workflow) FlattenTasks() (map[string]*Operator, error) {
	flat := make(map[string]*Operator, len(w.Tasks))
	var walk func(op *Operator) error
	walk = func(op *Operator) error {
		if _, dup := flat[op.TaskID]; dup {
			return types.NewError(types.ErrDuplicateTask, "duplicate task id").WithTask(op.TaskID)
		}
		flat[op.TaskID] = op
		for _, body := range op.LoopBody {
			if err := walk(body); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range w.sortedTaskIDs() {
		if err := walk(w.Tasks[id]); err != nil {
			return nil, err
		}
	}
	return flat, nil
}

// sortedTaskIDs returns the top-level task IDs in lexical order, the
// iteration order used wherever deterministic output is required.
func (w *Workflow) sortedTaskIDs() []string {
	ids := make([]string, 0, len(w.Tasks))
	for id := range w.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
