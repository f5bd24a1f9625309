package llmclient

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var toolCallTagPattern = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

// rawToolCall accepts both {name, arguments} and {function, parameters}
// aliasing, per spec.md §4.5.
type rawToolCall struct {
	Name       string `json:"name"`
	Function   string `json:"function"`
	Arguments  any    `json:"arguments"`
	Parameters any    `json:"parameters"`
}

func (r rawToolCall) resolvedName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Function
}

func (r rawToolCall) resolvedArguments() (string, error) {
	args := r.Arguments
	if args == nil {
		args = r.Parameters
	}
	if args == nil {
		return "{}", nil
	}
	if s, ok := args.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExtractToolCalls implements spec.md §4.5's textual tool-call fallback:
// some providers never populate the structured `tool_calls` field, so a
// completion's message content is scanned for `<tool_call>` tags or a
// bare JSON array whose first element looks like a call. Returns the
// extracted calls and the content with every `<tool_call>` region
// stripped.
func ExtractToolCalls(content string) ([]ToolCall, string) {
	if !strings.Contains(content, "<tool_call>") && !strings.Contains(content, `"name"`) {
		return nil, content
	}

	matches := toolCallTagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) > 0 {
		calls := make([]ToolCall, 0, len(matches))
		now := time.Now().UnixNano()
		for i, m := range matches {
			var raw rawToolCall
			if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &raw); err != nil {
				continue
			}
			args, err := raw.resolvedArguments()
			if err != nil {
				continue
			}
			calls = append(calls, ToolCall{
				ID:   fmt.Sprintf("call_%d_%d", now, i),
				Type: "function",
				Function: ToolCallFunction{
					Name:      raw.resolvedName(),
					Arguments: args,
				},
			})
		}
		stripped := toolCallTagPattern.ReplaceAllString(content, "")
		return calls, stripped
	}

	if calls := extractBareArray(content); len(calls) > 0 {
		return calls, content
	}

	return nil, content
}

// extractBareArray scans content for a top-level JSON array whose first
// element contains a "name" key, per spec.md §4.5 step 2.
func extractBareArray(content string) []ToolCall {
	start := strings.Index(content, "[")
	if start == -1 {
		return nil
	}
	end := strings.LastIndex(content, "]")
	if end == -1 || end < start {
		return nil
	}

	candidate := content[start : end+1]
	var raws []rawToolCall
	if err := json.Unmarshal([]byte(candidate), &raws); err != nil {
		return nil
	}
	if len(raws) == 0 || raws[0].resolvedName() == "" {
		return nil
	}

	now := time.Now().UnixNano()
	calls := make([]ToolCall, 0, len(raws))
	for i, raw := range raws {
		args, err := raw.resolvedArguments()
		if err != nil {
			continue
		}
		calls = append(calls, ToolCall{
			ID:   fmt.Sprintf("call_%d_%d", now, i),
			Type: "function",
			Function: ToolCallFunction{
				Name:      raw.resolvedName(),
				Arguments: args,
			},
		})
	}
	return calls
}

// ToolCallAggregator accumulates DeltaToolCall fragments from a streaming
// response, indexed by their `index` field, into complete ToolCall
// records, per spec.md §4.5's streaming companion helper.
type ToolCallAggregator struct {
	order   []int
	byIndex map[int]*ToolCall
}

// NewToolCallAggregator constructs an empty aggregator.
func NewToolCallAggregator() *ToolCallAggregator {
	return &ToolCallAggregator{byIndex: make(map[int]*ToolCall)}
}

// Add folds one chunk's tool-call deltas into the aggregator.
func (a *ToolCallAggregator) Add(deltas []DeltaToolCall) {
	for _, d := range deltas {
		call, ok := a.byIndex[d.Index]
		if !ok {
			call = &ToolCall{Type: "function"}
			a.byIndex[d.Index] = call
			a.order = append(a.order, d.Index)
		}
		if d.ID != "" {
			call.ID = d.ID
		}
		if d.Type != "" {
			call.Type = d.Type
		}
		if d.Function.Name != "" {
			call.Function.Name += d.Function.Name
		}
		call.Function.Arguments += d.Function.Arguments
	}
}

// Calls returns the aggregated tool calls in the order each index was
// first seen, not sorted by index value.
func (a *ToolCallAggregator) Calls() []ToolCall {
	calls := make([]ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		calls = append(calls, *a.byIndex[idx])
	}
	return calls
}
