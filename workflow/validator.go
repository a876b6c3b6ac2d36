package workflow

import (
	"regexp"
	"sort"
	"strings"

	"github.com/BaSui01/highway/types"
)

var (
	nameRE    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	versionRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Validate checks every workflow invariant, failing fast on the first
// violation. The check order is fixed: grammar, task uniqueness, dependency
// existence, callback existence, switch/condition/join/branch reference
// existence, cycle detection. Build runs it automatically; decoding runs it
// again on loaded documents.
func (w *Workflow) Validate() error {
	if err := w.validateGrammar(); err != nil {
		return err
	}
	flat, err := w.FlattenTasks()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(flat))
	for id := range flat {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if w.StartTask != "" {
		if _, ok := flat[w.StartTask]; !ok {
			return types.NewError(types.ErrDanglingReference, "start task does not exist").WithRef(w.StartTask)
		}
	}
	for _, id := range ids {
		for _, dep := range flat[id].Dependencies {
			if _, ok := flat[dep]; !ok {
				return types.NewError(types.ErrDanglingReference, "dependency does not exist").
					WithTask(id).WithRef(dep)
			}
		}
	}
	for _, id := range ids {
		op := flat[id]
		if op.OnSuccess != "" {
			if _, ok := flat[op.OnSuccess]; !ok {
				return types.NewError(types.ErrDanglingReference, "on_success target does not exist").
					WithTask(id).WithRef(op.OnSuccess)
			}
		}
		if op.OnFailure != "" {
			if _, ok := flat[op.OnFailure]; !ok {
				return types.NewError(types.ErrDanglingReference, "on_failure target does not exist").
					WithTask(id).WithRef(op.OnFailure)
			}
		}
	}
	for _, id := range ids {
		if err := validateReferences(flat[id], flat); err != nil {
			return err
		}
	}
	return detectCycles(flat, ids)
}

func (w *Workflow) validateGrammar() error {
	if !nameRE.MatchString(w.Name) {
		return types.NewError(types.ErrGrammar,
			"workflow name %q must match ^[a-z][a-z0-9_]*$", w.Name)
	}
	if strings.Contains(w.Name, scopeSeparator) {
		return types.NewError(types.ErrGrammar,
			"workflow name %q contains reserved separator %q", w.Name, scopeSeparator)
	}
	if w.Version == "" || !versionRE.MatchString(w.Version) {
		return types.NewError(types.ErrGrammar,
			"workflow version %q must match ^[A-Za-z0-9._-]+$", w.Version)
	}
	if strings.Contains(w.Version, scopeSeparator) {
		return types.NewError(types.ErrGrammar,
			"workflow version %q contains reserved separator %q", w.Version, scopeSeparator)
	}
	return nil
}

// validateReferences resolves the cross-references held by a single
// operator: condition targets, switch cases and default, join members, and
// parallel branch member lists.
func validateReferences(op *Operator, flat map[string]*Operator) error {
	check := func(kind, ref string) error {
		if ref == "" {
			return nil
		}
		if _, ok := flat[ref]; !ok {
			return types.NewError(types.ErrDanglingReference, "%s target does not exist", kind).
				WithTask(op.TaskID).WithRef(ref)
		}
		return nil
	}
	switch op.Type {
	case OperatorCondition:
		if err := check("if_true", op.IfTrue); err != nil {
			return err
		}
		if err := check("if_false", op.IfFalse); err != nil {
			return err
		}
	case OperatorSwitch:
		for _, value := range sortedKeys(op.Cases) {
			if err := check("case", op.Cases[value]); err != nil {
				return err
			}
		}
		if err := check("default", op.Default); err != nil {
			return err
		}
	case OperatorJoin:
		if len(op.JoinTasks) == 0 {
			return types.NewError(types.ErrInvalidJoin, "join requires at least one task").WithTask(op.TaskID)
		}
		for _, member := range op.JoinTasks {
			if err := check("join", member); err != nil {
				return err
			}
		}
	case OperatorParallel:
		for _, branch := range sortedKeys(op.Branches) {
			for _, member := range op.Branches[branch] {
				if err := check("branch", member); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// detectCycles runs a DFS over the flattened graph. Edges are dependency
// edges plus containment edges: condition to its targets, parallel to its
// branch members, and loop to its body tasks.
func detectCycles(flat map[string]*Operator, ids []string) error {
	adj := make(map[string][]string, len(flat))
	for _, id := range ids {
		op := flat[id]
		for _, dep := range op.Dependencies {
			adj[dep] = append(adj[dep], id)
		}
		switch op.Type {
		case OperatorCondition:
			if op.IfTrue != "" {
				adj[id] = append(adj[id], op.IfTrue)
			}
			if op.IfFalse != "" {
				adj[id] = append(adj[id], op.IfFalse)
			}
		case OperatorParallel:
			for _, branch := range sortedKeys(op.Branches) {
				adj[id] = append(adj[id], op.Branches[branch]...)
			}
		case OperatorForEach, OperatorWhile:
			for _, body := range op.LoopBody {
				adj[id] = append(adj[id], body.TaskID)
			}
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(flat))
	var visit func(id string) string
	visit = func(id string) string {
		state[id] = inStack
		for _, next := range adj[id] {
			switch state[next] {
			case inStack:
				return next
			case unvisited:
				if hit := visit(next); hit != "" {
					return hit
				}
			}
		}
		state[id] = done
		return ""
	}
	for _, id := range ids {
		if state[id] == unvisited {
			if hit := visit(id); hit != "" {
				return types.NewError(types.ErrCycle, "dependency cycle detected").WithTask(hit)
			}
		}
	}
	return nil
}
