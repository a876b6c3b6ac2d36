// Copyright (c) Highway Authors.
// Licensed under the MIT License.

// Package types defines the shared error model used by the workflow
// definition packages: a structured error carrying a stable error code plus
// the task and reference identifiers involved in the violation.
package types
