package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/highway/types"
)

func TestValidate_NameGrammar(t *testing.T) {
	valid := []string{"a", "pipeline", "my_flow_2"}
	for _, name := range valid {
		wf := NewWorkflow(name)
		wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()"}
		assert.NoError(t, wf.Validate(), name)
	}

	invalid := []string{"", "Pipeline", "1flow", "my-flow", "my flow", "a::b"}
	for _, name := range invalid {
		wf := NewWorkflow(name)
		err := wf.Validate()
		require.Error(t, err, name)
		assert.Equal(t, types.ErrGrammar, types.GetErrorCode(err), name)
	}
}

func TestValidate_VersionGrammar(t *testing.T) {
	for _, version := range []string{"1.0.0", "2.1", "v3-beta.1", "2024_01"} {
		wf := NewWorkflow("flow")
		wf.Version = version
		assert.NoError(t, wf.Validate(), version)
	}
	for _, version := range []string{"", "1.0 beta", "a::b", "v1!"} {
		wf := NewWorkflow("flow")
		wf.Version = version
		err := wf.Validate()
		require.Error(t, err, version)
		assert.Equal(t, types.ErrGrammar, types.GetErrorCode(err), version)
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()", Dependencies: []string{"ghost"}}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))

	var werr *types.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "a", werr.TaskID)
	assert.Equal(t, "ghost", werr.Ref)
}

func TestValidate_MissingStartTask(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()"}
	wf.StartTask = "ghost"

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_MissingCallbackTarget(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()", OnSuccess: "ghost"}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_MissingConditionTarget(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["gate"] = &Operator{TaskID: "gate", Type: OperatorCondition, Condition: "x", IfTrue: "ghost"}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_MissingSwitchTarget(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["route"] = &Operator{
		TaskID: "route", Type: OperatorSwitch, SwitchOn: "ctx['kind']",
		Cases: map[string]string{"a": "ghost"},
	}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_MissingJoinMember(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["barrier"] = &Operator{TaskID: "barrier", Type: OperatorJoin, JoinTasks: []string{"ghost"}, JoinMode: JoinAllOf}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_EmptyJoin(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["barrier"] = &Operator{TaskID: "barrier", Type: OperatorJoin, JoinMode: JoinAllOf}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidJoin, types.GetErrorCode(err))
}

func TestValidate_MissingParallelBranchMember(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["fan"] = &Operator{
		TaskID: "fan", Type: OperatorParallel,
		Branches: map[string][]string{"x": {"ghost"}},
	}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDanglingReference, types.GetErrorCode(err))
}

func TestValidate_DependencyCycle(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()", Dependencies: []string{"b"}}
	wf.Tasks["b"] = &Operator{TaskID: "b", Type: OperatorTask, Function: "b()", Dependencies: []string{"a"}}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrCycle, types.GetErrorCode(err))
}

func TestValidate_CycleThroughConditionTarget(t *testing.T) {
	// gate routes back to a task upstream of itself.
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()"}
	wf.Tasks["gate"] = &Operator{TaskID: "gate", Type: OperatorCondition, Condition: "x", Dependencies: []string{"a"}, IfTrue: "b"}
	wf.Tasks["b"] = &Operator{TaskID: "b", Type: OperatorTask, Function: "b()"}
	wf.Tasks["a"].Dependencies = []string{"b"}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrCycle, types.GetErrorCode(err))
}

func TestValidate_SelfDependencyCycle(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["a"] = &Operator{TaskID: "a", Type: OperatorTask, Function: "a()", Dependencies: []string{"a"}}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrCycle, types.GetErrorCode(err))
}

func TestValidate_DuplicateIDInLoopBody(t *testing.T) {
	wf := NewWorkflow("flow")
	wf.Tasks["loop"] = &Operator{
		TaskID: "loop", Type: OperatorForEach, Items: "ctx['items']",
		LoopBody: []*Operator{
			{TaskID: "loop", Type: OperatorTask, Function: "shadow()", InternalLoopTask: true},
		},
	}

	err := wf.Validate()
	require.Error(t, err)
	assert.Equal(t, types.ErrDuplicateTask, types.GetErrorCode(err))
}

func TestValidate_LoopBodyReferencesAreVisible(t *testing.T) {
	// Dependencies may point at operators nested inside loop bodies.
	wf := NewWorkflow("flow")
	wf.Tasks["loop"] = &Operator{
		TaskID: "loop", Type: OperatorForEach, Items: "ctx['items']",
		LoopBody: []*Operator{
			{TaskID: "step", Type: OperatorTask, Function: "step()", InternalLoopTask: true, Dependencies: []string{"loop"}},
		},
	}
	wf.Tasks["after"] = &Operator{TaskID: "after", Type: OperatorTask, Function: "after()", Dependencies: []string{"loop"}}

	assert.NoError(t, wf.Validate())
}

func TestValidate_ValidWorkflowPasses(t *testing.T) {
	wf, err := newTestBuilder("full").
		Task("ingest", "ingest()").
		Condition("quality_gate", "ctx['score'] > 0.9",
			func(b *Builder) { b.Task("publish", "publish()") },
			func(b *Builder) { b.Task("quarantine", "quarantine()") },
		).
		Build()
	require.NoError(t, err)
	assert.NoError(t, wf.Validate())
}
