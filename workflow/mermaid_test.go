package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestToMermaid_Linear(t *testing.T) {
	wf, err := newTestBuilder("linear").
		Task("a", "a()").
		Task("b", "b()").
		Task("c", "c()").
		Build()
	require.NoError(t, err)

	assert.Equal(t, lines(
		"stateDiagram-v2",
		"    [*] --> a",
		"    a --> b",
		"    b --> c",
		"    c --> [*]",
	), wf.ToMermaid())
}

func TestToMermaid_DescribedState(t *testing.T) {
	wf, err := newTestBuilder("labels").
		Task("ingest", "ingest()").
		Describe("Ingest raw data").
		Build()
	require.NoError(t, err)

	out := wf.ToMermaid()
	assert.Contains(t, out, "    state \"Ingest raw data\" as ingest\n")
}

func TestToMermaid_ConditionTransitions(t *testing.T) {
	wf, err := newTestBuilder("cond").
		Task("start", "start()").
		Condition("gate", "ctx['ok']",
			func(b *Builder) { b.Task("t_path", "t()") },
			func(b *Builder) { b.Task("f_path", "f()") },
		).
		Build()
	require.NoError(t, err)

	assert.Equal(t, lines(
		"stateDiagram-v2",
		"    [*] --> start",
		"    start --> gate",
		"    gate --> t_path : True",
		"    gate --> f_path : False",
		"    f_path --> [*]",
		"    t_path --> [*]",
	), wf.ToMermaid())
}

func TestToMermaid_LeafConditionWithSingleBranchTerminates(t *testing.T) {
	// A leaf condition with only one branch wired is itself a potential
	// end state and keeps its terminal transition; with both branches
	// wired it would terminate through them instead.
	wf, err := newTestBuilder("half").
		Task("start", "start()").
		ConditionTo("gate", "ctx['ok']", "t_path", "").
		Task("t_path", "t()", WithDependencies()).
		Build()
	require.NoError(t, err)

	assert.Equal(t, lines(
		"stateDiagram-v2",
		"    [*] --> start",
		"    start --> gate",
		"    gate --> t_path : True",
		"    gate --> [*]",
		"    t_path --> [*]",
	), wf.ToMermaid())
}

func TestToMermaid_ParallelComposite(t *testing.T) {
	wf, err := newTestBuilder("fanout").
		Task("a", "a()").
		Parallel("fan", map[string]func(*Builder){
			"alpha": func(b *Builder) { b.Task("x", "x()") },
			"beta":  func(b *Builder) { b.Task("y", "y()") },
		}).
		Task("c", "c()").
		Build()
	require.NoError(t, err)

	assert.Equal(t, lines(
		"stateDiagram-v2",
		"    [*] --> a",
		"    fan --> c",
		"    state fan {",
		"        state \"Branch 1\" as alpha",
		"        --",
		"        state \"Branch 2\" as beta",
		"    }",
		"    a --> fan",
		"    fan --> x",
		"    fan --> y",
		"    c --> [*]",
		"    x --> [*]",
		"    y --> [*]",
	), wf.ToMermaid())
}

func TestToMermaid_LoopComposite(t *testing.T) {
	wf, err := newTestBuilder("batch").
		Task("fetch", "fetch()").
		ForEach("each_item", "ctx['items']", func(b *Builder) {
			b.Task("process", "process(item)", WithDescription("Process item"))
		}).
		Task("report", "report()").
		Build()
	require.NoError(t, err)

	assert.Equal(t, lines(
		"stateDiagram-v2",
		"    state each_item {",
		"        state \"Process item\" as process",
		"    }",
		"    fetch --> each_item",
		"    [*] --> fetch",
		"    each_item --> report",
		"    report --> [*]",
	), wf.ToMermaid())
}

func TestToMermaid_LoopBodyWithoutDescriptionUsesTaskID(t *testing.T) {
	wf, err := newTestBuilder("poll").
		While("until_done", "ctx['pending']", func(b *Builder) {
			b.Task("drain", "drain()")
		}).
		Build()
	require.NoError(t, err)

	out := wf.ToMermaid()
	assert.Contains(t, out, "    state until_done {\n        state \"drain\" as drain\n    }\n")
	// Internal loop tasks never appear as top-level transitions.
	assert.NotContains(t, out, "drain --> [*]")
	assert.NotContains(t, out, "[*] --> drain")
}

func TestToMermaid_Deterministic(t *testing.T) {
	build := func() *Workflow {
		wf, err := newTestBuilder("det").
			Task("seed", "seed()").
			Parallel("fan", map[string]func(*Builder){
				"one":   func(b *Builder) { b.Task("n1", "n1()") },
				"two":   func(b *Builder) { b.Task("n2", "n2()") },
				"three": func(b *Builder) { b.Task("n3", "n3()") },
			}).
			Condition("gate", "ctx['ok']",
				func(b *Builder) { b.Task("yes", "yes()") },
				func(b *Builder) { b.Task("no", "no()") },
			).
			Build()
		require.NoError(t, err)
		return wf
	}

	first := build().ToMermaid()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build().ToMermaid())
	}
}

func TestToMermaid_DuplicateTransitionsCollapsed(t *testing.T) {
	// Two tasks sharing a dependency produce one transition line each, and
	// repeated projection never duplicates lines.
	wf, err := newTestBuilder("dedup").
		Task("root", "root()").
		Task("left", "left()", WithDependencies("root")).
		Task("right", "right()", WithDependencies("root")).
		Build()
	require.NoError(t, err)

	out := wf.ToMermaid()
	assert.Equal(t, 1, strings.Count(out, "    root --> left\n"))
	assert.Equal(t, 1, strings.Count(out, "    root --> right\n"))
}
