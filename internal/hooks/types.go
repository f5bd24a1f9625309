// Package hooks implements the hook pipeline (C3) from spec.md §4.3: an
// ordered, per-event handler list that can observe, amend, or block a core
// operation, grounded on the HookManager/HookPayload/HookAction shapes in
// jholhewres-goclaw's pkg/devclaw/copilot/hooks.go, generalized to the
// inline-or-shell-command handler split spec.md requires.
package hooks

import (
	"context"
	"time"
)

// Event identifies the lifecycle point at which a hook fires.
type Event string

const (
	SessionStart       Event = "SessionStart"
	UserPromptSubmit   Event = "UserPromptSubmit"
	PreToolUse         Event = "PreToolUse"
	PostToolUse        Event = "PostToolUse"
	PostToolUseFailure Event = "PostToolUseFailure"
	Stop               Event = "Stop"
	SessionEnd         Event = "SessionEnd"
)

// Input carries the contextual data passed to a hook invocation. Fields are
// populated based on the event type; unused fields are zero-valued, per
// spec.md §6's hook subprocess contract.
type Input struct {
	SessionID    string         `json:"session_id"`
	ProjectPath  string         `json:"project_path"`
	Model        string         `json:"model"`
	Timestamp    string         `json:"timestamp"`
	ToolName     string         `json:"tool_name,omitempty"`
	ToolInput    map[string]any `json:"tool_input,omitempty"`
	ToolOutput   string         `json:"tool_output,omitempty"`
	Duration     float64        `json:"duration,omitempty"`
	Error        string         `json:"error,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	MessageCount int            `json:"message_count,omitempty"`
	TokensUsed   int            `json:"tokens_used,omitempty"`
}

// Output is what a hook handler returns, per spec.md §3's HookOutput.
type Output struct {
	Block         bool
	BlockReason   string
	ModifiedInput map[string]any
	AddContent    string
}

// InlineHandler runs in-process and returns an Output.
type InlineHandler func(ctx context.Context, input Input) (Output, error)

// Descriptor is one registered hook, per spec.md §3's HookDescriptor.
// Exactly one of InlineFn or Command should be set.
type Descriptor struct {
	ID       string
	Event    Event
	Matcher  string // optional regex matched against Input.ToolName
	InlineFn InlineHandler
	Command  string // shell command; stdout parsed as Output, HOOK_INPUT env var carries Input
	Timeout  time.Duration
	Async    bool // fire-and-forget, no result consumed
}

const DefaultTimeout = 30 * time.Second
