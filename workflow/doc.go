// Copyright (c) Highway Authors.
// Licensed under the MIT License.

/*
Package workflow implements a declarative workflow-definition DSL: a fluent
builder that assembles a typed operator graph, a validator that enforces its
invariants, JSON/YAML serialization, and a Mermaid diagram projection.

# Overview

A workflow is a named, versioned collection of operators keyed by task ID.
The Builder is the write path: it resolves implicit dependencies between
chained calls, opens child scopes for condition branches, parallel branches
and loop bodies, and finishes with Build, which assigns an ID, validates the
graph, and returns an immutable Workflow. Nothing executes here; the result
is a description handed to a downstream executor.

# Core types

  - Workflow       — validated task graph plus schedule metadata
  - Operator       — tagged operator record (task, activity, condition,
    wait, parallel, foreach, while, switch, join, emit_event,
    wait_for_event)
  - Builder        — fluent construction API with scope tracking
  - Duration       — relative (ISO-8601 PT/P) or absolute (RFC 3339) delay
  - RetryPolicy / TimeoutPolicy — per-task execution policies

# Capabilities

  - Implicit chaining: each builder call depends on the previous one unless
    explicit dependencies are given; callback targets are exempt
  - Branch scopes: Condition, Parallel, ForEach and While accept callbacks
    that build their branches or bodies in a fresh scope
  - Validation: name/version grammar, task uniqueness, dependency and
    reference existence, join arity, cycle detection over dependency and
    containment edges
  - Interchange: ToJSON/ToYAML with FromJSON/FromYAML round-tripping,
    including re-validation on decode
  - Projection: ToMermaid renders a deterministic stateDiagram-v2 view with
    labeled condition transitions and composite parallel/loop states
*/
package workflow
