package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// DefaultOutputTruncateChars is the ceiling beyond which a tool's output is
// truncated, per spec.md §4.2.
const DefaultOutputTruncateChars = 50000

const truncationMarker = "\n… (output truncated)"

// Executor parses arguments, gates execution behind the approval policy,
// invokes the handler, and truncates oversized output, per spec.md §4.2.
type Executor struct {
	registry      *Registry
	approvalMode  ApprovalMode
	approvalFn    ApprovalCallback
	truncateChars int
	logger        *slog.Logger
}

// NewExecutor constructs an Executor bound to registry. The default
// approval mode is unsafe-only, matching spec.md's default.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:      registry,
		approvalMode:  ApprovalUnsafeOnly,
		truncateChars: DefaultOutputTruncateChars,
		logger:        logger,
	}
}

// SetApprovalMode toggles the runtime approval policy (the "YOLO" switch).
func (e *Executor) SetApprovalMode(mode ApprovalMode) { e.approvalMode = mode }

// SetApprovalCallback installs the callback asked for approval decisions.
func (e *Executor) SetApprovalCallback(cb ApprovalCallback) { e.approvalFn = cb }

// SetTruncateChars overrides the output truncation ceiling.
func (e *Executor) SetTruncateChars(n int) {
	if n > 0 {
		e.truncateChars = n
	}
}

// Execute runs one tool call end to end, per the algorithm in spec.md §4.2.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	var args map[string]any
	if call.Arguments == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return errorResult(call.ID, fmt.Sprintf("Invalid tool arguments: %v", err))
	}

	descriptor, err := e.registry.Lookup(call.Name)
	if err != nil {
		return errorResult(call.ID, fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	if e.needsApproval(descriptor) {
		if e.approvalFn == nil || !e.approvalFn(ctx, call) {
			return errorResult(call.ID, fmt.Sprintf("Tool %s denied by user", call.Name))
		}
	}

	body, err := e.invoke(ctx, descriptor, args)
	if err != nil {
		e.logger.Warn("tool handler failed", "tool", call.Name, "error", err)
		return errorResult(call.ID, err.Error())
	}

	return Result{
		ToolCallID: call.ID,
		Content:    truncate(body, e.truncateChars),
		IsError:    false,
	}
}

// ExecuteBatch runs tool_calls sequentially, preserving order, per spec.md §4.2.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []Call) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.Execute(ctx, call))
	}
	return results
}

func (e *Executor) needsApproval(d Descriptor) bool {
	switch e.approvalMode {
	case ApprovalAlways:
		return true
	case ApprovalNever:
		return false
	case ApprovalUnsafeOnly:
		return !d.AutoSafe
	default:
		return !d.AutoSafe
	}
}

// invoke calls the handler, recovering a panic into an error so a single
// misbehaving tool cannot crash the agent loop.
func (e *Executor) invoke(ctx context.Context, d Descriptor, args map[string]any) (body string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", d.Name, r)
		}
	}()
	return d.Handler(ctx, args)
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}

func errorResult(toolCallID, message string) Result {
	return Result{ToolCallID: toolCallID, Content: message, IsError: true}
}
