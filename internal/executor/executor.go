// Package executor describes the remote code-execution service this server talks to.
//
// The types mirror the Judge0 submission wire format. Implementations live in
// subpackages (see executor/judge0).
package executor

import (
	"context"
	"strings"
)

// ExecutionRequest is the JSON body POSTed to the execution service.
type ExecutionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Status is the nested status object of a submission.
type Status struct {
	ID          int    `json:"id,omitempty"`
	Description string `json:"description"`
}

// ExecutionResult is the subset of the submission response we render.
//
// Plain strings on purpose: a missing key, a JSON null and "" all decode to "",
// and the report treats all three the same way.
type ExecutionResult struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	Status        *Status `json:"status"`
}

// Executor submits code to a remote runtime and waits for the result.
// Configured reports whether Execute can reach a runtime at all; callers
// check it first so an unconfigured server never makes a network call.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
	Configured() bool
}

// NoOutput is the report when every field came back empty.
const NoOutput = "No output."

// StatusDescription returns status.description or "".
func (r *ExecutionResult) StatusDescription() string {
	if r == nil || r.Status == nil {
		return ""
	}
	return r.Status.Description
}

// Report renders the result as the text shown in the output panel.
// Sections appear only for non-empty fields, always in the order
// status, stdout, stderr, compile output.
func (r *ExecutionResult) Report() string {
	if r == nil {
		return NoOutput
	}

	var b strings.Builder
	if status := r.StatusDescription(); status != "" {
		b.WriteString("Status: " + status + "\n\n")
	}
	if r.Stdout != "" {
		b.WriteString("Output:\n" + r.Stdout + "\n")
	}
	if r.Stderr != "" {
		b.WriteString("Errors:\n" + r.Stderr + "\n")
	}
	if r.CompileOutput != "" {
		b.WriteString("Compiler Output:\n" + r.CompileOutput + "\n")
	}

	if b.Len() == 0 {
		return NoOutput
	}
	return b.String()
}
