package workflow

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/highway/types"
)

// scopeSeparator qualifies nested scope names in builder logs. The workflow
// name and version grammar reserves this sequence so qualified scope names
// can never collide with user identifiers.
const scopeSeparator = "::"

// buildState is the mutable state shared by a builder and all of its nested
// scope builders: the workflow under construction, the flattened set of
// registered task IDs, the callback-target registry, and the first
// construction error (fail fast, first violation wins).
type buildState struct {
	wf              *Workflow
	seen            map[string]bool
	byID            map[string]*Operator
	callbackTargets map[string]bool
	logger          *zap.Logger
	err             error
}

func (st *buildState) fail(err error) {
	if st.err == nil {
		st.err = err
	}
}

// Builder assembles a Workflow from a sequence of fluent declarations.
//
// Each builder value represents one scope: the root chain, a condition
// branch, a parallel branch, or a loop body. Scope state (the implicit
// "current task" pointer and the internal-loop flag) lives on the Builder
// itself, so nested scopes are isolated simply by constructing a fresh
// Builder that shares the buildState.
//
// Builders are not safe for concurrent use.
type Builder struct {
	st    *buildState
	scope string
	// current is the implicit-chaining pointer: the task an operator
	// declared with no explicit dependencies will depend on.
	current string
	// inLoop marks every produced operator as an internal loop task.
	inLoop bool
	// order records task IDs declared directly in this scope.
	order []string
	// produced records every operator created in this scope, including
	// transitively through nested scopes. Enclosing branch scopes use it
	// to append their own task ID to non-internal members.
	produced []*Operator
	// sink, when non-nil, receives operators instead of the workflow's
	// top-level task map. Loop bodies collect into the loop operator.
	sink *[]*Operator
}

// NewBuilder creates a builder for a new workflow with the given name.
func NewBuilder(name string) *Builder {
	logger, _ := zap.NewProduction()
	return &Builder{
		st: &buildState{
			wf:              NewWorkflow(name),
			seen:            make(map[string]bool),
			byID:            make(map[string]*Operator),
			callbackTargets: make(map[string]bool),
			logger:          logger.With(zap.String("component", "workflow_builder")),
		},
	}
}

// NewBuilderFrom creates a builder that extends an existing workflow.
func NewBuilderFrom(wf *Workflow) *Builder {
	b := NewBuilder(wf.Name)
	b.st.wf = wf
	if wf.Tasks == nil {
		wf.Tasks = make(map[string]*Operator)
	}
	flat, err := wf.FlattenTasks()
	if err != nil {
		b.st.fail(err)
		return b
	}
	for id, op := range flat {
		b.st.seen[id] = true
		b.st.byID[id] = op
		if op.OnSuccess != "" {
			b.st.callbackTargets[op.OnSuccess] = true
		}
		if op.OnFailure != "" {
			b.st.callbackTargets[op.OnFailure] = true
		}
	}
	return b
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.st.logger = logger.With(zap.String("component", "workflow_builder"))
	return b
}

// WithDescription sets the workflow description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.st.wf.Description = desc
	return b
}

// WithVersion sets the workflow version.
func (b *Builder) WithVersion(version string) *Builder {
	b.st.wf.Version = version
	return b
}

// WithID sets the workflow ID, overriding the generated UUID.
func (b *Builder) WithID(id string) *Builder {
	b.st.wf.ID = id
	return b
}

// SetVariables merges the given variables into the workflow.
func (b *Builder) SetVariables(vars map[string]any) *Builder {
	if b.st.wf.Variables == nil {
		b.st.wf.Variables = make(map[string]any, len(vars))
	}
	for k, v := range vars {
		b.st.wf.Variables[k] = v
	}
	return b
}

// SetStartTask pins the workflow start task. When unset, the first task
// declared at the root scope becomes the start task.
func (b *Builder) SetStartTask(taskID string) *Builder {
	b.st.wf.StartTask = taskID
	return b
}

// SetSchedule sets the cron expression for scheduled execution.
func (b *Builder) SetSchedule(cron string) *Builder {
	b.st.wf.Schedule = cron
	return b
}

// SetStartDate sets the schedule anchor date.
func (b *Builder) SetStartDate(t Duration) *Builder {
	if t.IsAbsolute() {
		at := t.Time()
		b.st.wf.StartDate = &at
	}
	return b
}

// SetCatchup controls whether missed schedule intervals are backfilled.
func (b *Builder) SetCatchup(catchup bool) *Builder {
	b.st.wf.Catchup = catchup
	return b
}

// AddTags appends workflow tags.
func (b *Builder) AddTags(tags ...string) *Builder {
	b.st.wf.Tags = append(b.st.wf.Tags, tags...)
	return b
}

// SetMaxActiveRuns bounds concurrent scheduled runs.
func (b *Builder) SetMaxActiveRuns(n int) *Builder {
	b.st.wf.MaxActiveRuns = n
	return b
}

// SetDefaultRetryPolicy sets the workflow-wide retry policy fallback.
func (b *Builder) SetDefaultRetryPolicy(p *RetryPolicy) *Builder {
	b.st.wf.DefaultRetryPolicy = p
	return b
}

// add inserts an operator into the current scope, applying the implicit
// chaining rule: an operator declared with no explicit dependency set
// depends on the current task, unless it is a registered callback target.
func (b *Builder) add(op *Operator, explicitDeps bool) *Builder {
	st := b.st
	if st.err != nil {
		return b
	}
	if op.TaskID == "" {
		st.fail(types.NewError(types.ErrGrammar, "task id must not be empty"))
		return b
	}
	if st.seen[op.TaskID] {
		st.fail(types.NewError(types.ErrDuplicateTask, "duplicate task id").WithTask(op.TaskID))
		return b
	}
	if !explicitDeps && b.current != "" && !st.callbackTargets[op.TaskID] {
		op.Dependencies = append(op.Dependencies, b.current)
	}
	op.Dependencies = normalizeDeps(op.Dependencies)
	if b.inLoop {
		op.InternalLoopTask = true
	}
	st.seen[op.TaskID] = true
	st.byID[op.TaskID] = op
	if b.sink != nil {
		*b.sink = append(*b.sink, op)
	} else {
		st.wf.Tasks[op.TaskID] = op
	}
	b.order = append(b.order, op.TaskID)
	b.produced = append(b.produced, op)
	b.current = op.TaskID
	return b
}

// childScope creates a nested scope builder with a fresh chaining pointer.
func (b *Builder) childScope(name string) *Builder {
	scope := name
	if b.scope != "" {
		scope = b.scope + scopeSeparator + name
	}
	return &Builder{
		st:     b.st,
		scope:  scope,
		inLoop: b.inLoop,
		sink:   b.sink,
	}
}

// adopt folds a finished scope's production into this scope so that
// enclosing branch scopes can see transitively produced operators.
func (b *Builder) adopt(c *Builder) {
	b.produced = append(b.produced, c.produced...)
}

// Task declares a function-executing task.
func (b *Builder) Task(taskID, function string, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorTask)
	op.Function = function
	return b.add(op, applyOptions(op, opts))
}

// Activity declares a long-running task executed outside the normal
// transaction boundary.
func (b *Builder) Activity(taskID, function string, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorActivity)
	op.Function = function
	return b.add(op, applyOptions(op, opts))
}

// Wait declares a pause for a relative duration or until an absolute
// timestamp.
func (b *Builder) Wait(taskID string, waitFor Duration, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorWait)
	op.WaitFor = &waitFor
	return b.add(op, applyOptions(op, opts))
}

// Condition declares a boolean branch. Each branch body runs in a fresh
// child scope whose internal chaining is independent of this scope; the
// branch's first declared task becomes the branch target, and every
// non-internal task the branch produces gains a dependency on the
// condition.
func (b *Builder) Condition(taskID, condition string, ifTrue, ifFalse func(*Builder), opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorCondition)
	op.Condition = condition
	b.add(op, applyOptions(op, opts))
	if b.st.err != nil {
		return b
	}
	op.IfTrue = b.runBranch(taskID, "if_true", ifTrue)
	op.IfFalse = b.runBranch(taskID, "if_false", ifFalse)
	b.current = taskID
	return b
}

// ConditionTo declares a boolean branch whose targets are task IDs declared
// elsewhere in the same builder session (forward references allowed;
// resolved at Build).
func (b *Builder) ConditionTo(taskID, condition, ifTrue, ifFalse string, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorCondition)
	op.Condition = condition
	op.IfTrue = ifTrue
	op.IfFalse = ifFalse
	return b.add(op, applyOptions(op, opts))
}

// runBranch builds one condition branch in a child scope and returns its
// entry task ID.
func (b *Builder) runBranch(scopeID, name string, fn func(*Builder)) string {
	if fn == nil || b.st.err != nil {
		return ""
	}
	c := b.childScope(scopeID + scopeSeparator + name)
	fn(c)
	b.adopt(c)
	if b.st.err != nil {
		return ""
	}
	if len(c.order) == 0 {
		b.st.fail(types.NewError(types.ErrDanglingReference,
			"condition branch %s declared no tasks", name).WithTask(scopeID))
		return ""
	}
	for _, p := range c.produced {
		if !p.InternalLoopTask {
			p.addDependency(scopeID)
		}
	}
	return c.order[0]
}

// Parallel declares a fan-out into named branches, each built in a fresh
// child scope. Every non-internal task a branch produces gains a dependency
// on the parallel operator; internal loop tasks are exempt, which keeps a
// loop nested inside a branch from leaking dependencies to this scope.
func (b *Builder) Parallel(taskID string, branches map[string]func(*Builder), opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorParallel)
	op.Branches = make(map[string][]string, len(branches))
	b.add(op, applyOptions(op, opts))
	if b.st.err != nil {
		return b
	}
	for _, name := range sortedKeys(branches) {
		c := b.childScope(taskID + scopeSeparator + name)
		branches[name](c)
		b.adopt(c)
		if b.st.err != nil {
			return b
		}
		op.Branches[name] = append([]string(nil), c.order...)
		for _, p := range c.produced {
			if !p.InternalLoopTask {
				p.addDependency(taskID)
			}
		}
	}
	b.current = taskID
	return b
}

// ParallelTo declares a fan-out over branches whose member tasks are
// declared elsewhere in the same builder session.
func (b *Builder) ParallelTo(taskID string, branches map[string][]string, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorParallel)
	op.Branches = make(map[string][]string, len(branches))
	for name, ids := range branches {
		op.Branches[name] = append([]string(nil), ids...)
	}
	return b.add(op, applyOptions(op, opts))
}

// ForEach declares a loop over a collection expression. The body runs in a
// fresh child scope; every task it produces is marked as an internal loop
// task and attached to the loop operator, and only the body's first task
// receives the loop operator as an implicit dependency.
func (b *Builder) ForEach(taskID, items string, body func(*Builder), opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorForEach)
	op.Items = items
	return b.loop(op, body, opts)
}

// While declares a loop that repeats while a condition expression holds.
// The body follows the same scoping rules as ForEach.
func (b *Builder) While(taskID, condition string, body func(*Builder), opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorWhile)
	op.Condition = condition
	return b.loop(op, body, opts)
}

func (b *Builder) loop(op *Operator, body func(*Builder), opts []TaskOption) *Builder {
	b.add(op, applyOptions(op, opts))
	if b.st.err != nil || body == nil {
		return b
	}
	var bodyOps []*Operator
	c := b.childScope(op.TaskID + scopeSeparator + "body")
	c.inLoop = true
	c.sink = &bodyOps
	body(c)
	b.adopt(c)
	if b.st.err != nil {
		return b
	}
	if len(bodyOps) > 0 {
		bodyOps[0].addDependency(op.TaskID)
	}
	op.LoopBody = bodyOps
	b.current = op.TaskID
	return b
}

// Switch declares a value-routing operator. Case and default targets may be
// forward references; they are resolved at Build.
func (b *Builder) Switch(taskID, switchOn string, cases map[string]string, defaultTarget string, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorSwitch)
	op.SwitchOn = switchOn
	op.Cases = make(map[string]string, len(cases))
	for k, v := range cases {
		op.Cases[k] = v
	}
	op.Default = defaultTarget
	return b.add(op, applyOptions(op, opts))
}

// Join declares a synchronization point over the listed tasks. A join's
// placement in the graph is semantic rather than structural, so it never
// receives an implicit chaining dependency; downstream tasks depend on the
// join through normal chaining or explicit dependencies.
func (b *Builder) Join(taskID string, joinTasks []string, mode JoinMode, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorJoin)
	op.JoinTasks = append([]string(nil), joinTasks...)
	op.JoinMode = mode
	if len(op.JoinTasks) == 0 {
		b.st.fail(types.NewError(types.ErrInvalidJoin, "join requires at least one task").WithTask(taskID))
		return b
	}
	applyOptions(op, opts)
	return b.add(op, true)
}

// EmitEvent declares an event-signaling operator.
func (b *Builder) EmitEvent(taskID, eventName string, payload map[string]any, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorEmitEvent)
	op.EventName = eventName
	op.Payload = payload
	return b.add(op, applyOptions(op, opts))
}

// WaitForEvent declares an operator that blocks until the named event
// arrives. timeoutSeconds of zero waits indefinitely.
func (b *Builder) WaitForEvent(taskID, eventName string, timeoutSeconds int64, opts ...TaskOption) *Builder {
	op := newOperator(taskID, OperatorWaitForEvent)
	op.EventName = eventName
	op.TimeoutSeconds = timeoutSeconds
	return b.add(op, applyOptions(op, opts))
}

// OnSuccess registers target as the success callback of the current task.
// The target may be declared later in the same session; it is resolved at
// Build, and is exempt from implicit chaining when declared.
func (b *Builder) OnSuccess(target string) *Builder {
	if op := b.currentOp(); op != nil {
		op.OnSuccess = target
		b.st.callbackTargets[target] = true
	}
	return b
}

// OnFailure registers target as the failure callback of the current task.
func (b *Builder) OnFailure(target string) *Builder {
	if op := b.currentOp(); op != nil {
		op.OnFailure = target
		b.st.callbackTargets[target] = true
	}
	return b
}

// Retry attaches a retry policy to the current task.
func (b *Builder) Retry(maxRetries int, delay Duration, backoffFactor float64) *Builder {
	if op := b.currentOp(); op != nil {
		op.RetryPolicy = &RetryPolicy{MaxRetries: maxRetries, Delay: delay, BackoffFactor: backoffFactor}
	}
	return b
}

// Timeout attaches a timeout policy to the current task.
func (b *Builder) Timeout(timeout Duration, killOnTimeout bool) *Builder {
	if op := b.currentOp(); op != nil {
		op.TimeoutPolicy = &TimeoutPolicy{Timeout: timeout, KillOnTimeout: killOnTimeout}
	}
	return b
}

// Describe sets the description of the current task.
func (b *Builder) Describe(desc string) *Builder {
	if op := b.currentOp(); op != nil {
		op.Description = desc
	}
	return b
}

func (b *Builder) currentOp() *Operator {
	if b.st.err != nil || b.current == "" {
		return nil
	}
	return b.st.byID[b.current]
}

// Err returns the first construction error recorded so far. Build returns
// the same error; Err allows inspecting it mid-chain.
func (b *Builder) Err() error {
	return b.st.err
}

// Build finalizes the workflow: assigns the generated ID and default start
// task, runs the validator, and returns the finished workflow. The returned
// workflow must be treated as immutable.
func (b *Builder) Build() (*Workflow, error) {
	st := b.st
	if st.err != nil {
		return nil, st.err
	}
	wf := st.wf
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	if wf.StartTask == "" && len(b.order) > 0 {
		wf.StartTask = b.order[0]
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	st.logger.Info("workflow built",
		zap.String("name", wf.Name),
		zap.String("version", wf.Version),
		zap.Int("tasks", len(wf.Tasks)),
		zap.String("start_task", wf.StartTask),
	)
	return wf, nil
}

// TaskOption configures an operator at declaration time.
type TaskOption func(*taskConfig)

type taskConfig struct {
	op           *Operator
	explicitDeps bool
}

// applyOptions applies opts to op and reports whether an explicit
// dependency set was supplied.
func applyOptions(op *Operator, opts []TaskOption) bool {
	cfg := taskConfig{op: op}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.explicitDeps
}

// WithArgs sets positional arguments for a task or activity.
func WithArgs(args ...any) TaskOption {
	return func(c *taskConfig) { c.op.Args = args }
}

// WithKwargs sets keyword arguments for a task or activity.
func WithKwargs(kwargs map[string]any) TaskOption {
	return func(c *taskConfig) { c.op.Kwargs = kwargs }
}

// WithResultKey names the shared-context slot receiving the task output.
func WithResultKey(key string) TaskOption {
	return func(c *taskConfig) { c.op.ResultKey = key }
}

// WithDependencies declares the exact dependency set, suppressing implicit
// chaining. WithDependencies() with no arguments declares an intentionally
// empty set.
func WithDependencies(taskIDs ...string) TaskOption {
	return func(c *taskConfig) {
		c.op.Dependencies = append(c.op.Dependencies, taskIDs...)
		c.explicitDeps = true
	}
}

// WithRetryPolicy attaches a retry policy.
func WithRetryPolicy(p *RetryPolicy) TaskOption {
	return func(c *taskConfig) { c.op.RetryPolicy = p }
}

// WithTimeoutPolicy attaches a timeout policy.
func WithTimeoutPolicy(p *TimeoutPolicy) TaskOption {
	return func(c *taskConfig) { c.op.TimeoutPolicy = p }
}

// WithDescription sets the operator description used as its diagram label.
func WithDescription(desc string) TaskOption {
	return func(c *taskConfig) { c.op.Description = desc }
}

// WithMetadata attaches a free-form metadata entry.
func WithMetadata(key string, value any) TaskOption {
	return func(c *taskConfig) {
		if c.op.Metadata == nil {
			c.op.Metadata = make(map[string]any)
		}
		c.op.Metadata[key] = value
	}
}

// WithParallelTimeout bounds a parallel operator's fan-out.
func WithParallelTimeout(d Duration) TaskOption {
	return func(c *taskConfig) { c.op.Timeout = &d }
}
