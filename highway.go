// Package highway provides a top-level convenience entry point for defining
// workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/highway"
//
//	wf, err := highway.NewBuilder("etl").
//		Task("extract", "extract()").
//		Task("load", "load()").
//		Build()
//
// This is a thin wrapper around the workflow package; both produce identical
// results. Use this package when you prefer the shorter import path.
package highway

import (
	"github.com/BaSui01/highway/workflow"
)

// Builder constructs workflows through a fluent API.
type Builder = workflow.Builder

// Workflow is the validated, immutable task graph produced by a Builder.
type Workflow = workflow.Workflow

// Operator is a single typed node of the task graph.
type Operator = workflow.Operator

// Duration is a relative or absolute delay used by wait operators, retry
// policies and timeouts.
type Duration = workflow.Duration

// RetryPolicy and TimeoutPolicy are the per-task execution policies.
type (
	RetryPolicy   = workflow.RetryPolicy
	TimeoutPolicy = workflow.TimeoutPolicy
)

// TaskOption configures a single builder task call.
type TaskOption = workflow.TaskOption

// JoinMode selects how a join operator combines member outcomes.
type JoinMode = workflow.JoinMode

const (
	JoinAllOf      = workflow.JoinAllOf
	JoinAnyOf      = workflow.JoinAnyOf
	JoinAllSuccess = workflow.JoinAllSuccess
	JoinOneSuccess = workflow.JoinOneSuccess
)

// NewBuilder starts a new workflow definition.
func NewBuilder(name string) *Builder {
	return workflow.NewBuilder(name)
}

// Re-export decoding entry points so callers never need to import workflow/.

// FromJSON decodes and re-validates a workflow from its JSON form.
var FromJSON = workflow.FromJSON

// FromYAML decodes and re-validates a workflow from its YAML form.
var FromYAML = workflow.FromYAML

// LoadFromJSONFile loads a workflow from a JSON file.
var LoadFromJSONFile = workflow.LoadFromJSONFile

// LoadFromYAMLFile loads a workflow from a YAML file.
var LoadFromYAMLFile = workflow.LoadFromYAMLFile

// Duration constructors.

var (
	Seconds = workflow.Seconds
	Minutes = workflow.Minutes
	Hours   = workflow.Hours
	Days    = workflow.Days
	Weeks   = workflow.Weeks
	At      = workflow.At
)

// Task options, re-exported so callers never need to import workflow/.

var (
	WithArgs          = workflow.WithArgs
	WithKwargs        = workflow.WithKwargs
	WithResultKey     = workflow.WithResultKey
	WithDependencies  = workflow.WithDependencies
	WithRetryPolicy   = workflow.WithRetryPolicy
	WithTimeoutPolicy = workflow.WithTimeoutPolicy
	WithDescription   = workflow.WithDescription
	WithMetadata      = workflow.WithMetadata
)
