package llmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractToolCallsFromTag(t *testing.T) {
	content := `Sure, let me check.<tool_call>{"name":"read_file","arguments":{"path":"a.go"}}</tool_call>`
	calls, stripped := ExtractToolCalls(content)
	require.Len(t, calls, 1)
	require.Equal(t, "read_file", calls[0].Function.Name)
	require.JSONEq(t, `{"path":"a.go"}`, calls[0].Function.Arguments)
	require.NotContains(t, stripped, "<tool_call>")
	require.Contains(t, stripped, "Sure, let me check.")
}

func TestExtractToolCallsAcceptsFunctionParametersAliasing(t *testing.T) {
	content := `<tool_call>{"function":"search","parameters":{"q":"go"}}</tool_call>`
	calls, _ := ExtractToolCalls(content)
	require.Len(t, calls, 1)
	require.Equal(t, "search", calls[0].Function.Name)
	require.JSONEq(t, `{"q":"go"}`, calls[0].Function.Arguments)
}

func TestExtractToolCallsMultipleTagsGetDistinctIDs(t *testing.T) {
	content := `<tool_call>{"name":"a","arguments":{}}</tool_call><tool_call>{"name":"b","arguments":{}}</tool_call>`
	calls, _ := ExtractToolCalls(content)
	require.Len(t, calls, 2)
	require.NotEqual(t, calls[0].ID, calls[1].ID)
}

func TestExtractToolCallsBareArrayFallback(t *testing.T) {
	content := `[{"name":"list_files","arguments":{"dir":"."}}]`
	calls, _ := ExtractToolCalls(content)
	require.Len(t, calls, 1)
	require.Equal(t, "list_files", calls[0].Function.Name)
}

func TestExtractToolCallsReturnsNilForPlainContent(t *testing.T) {
	calls, stripped := ExtractToolCalls("just a normal reply")
	require.Nil(t, calls)
	require.Equal(t, "just a normal reply", stripped)
}

func TestExtractToolCallsIgnoresMalformedTagBody(t *testing.T) {
	content := `<tool_call>not json</tool_call>`
	calls, _ := ExtractToolCalls(content)
	require.Empty(t, calls)
}

func TestToolCallAggregatorAssemblesFragmentedArguments(t *testing.T) {
	agg := NewToolCallAggregator()
	agg.Add([]DeltaToolCall{
		{Index: 0, ID: "call_1", Function: ToolCallFunction{Name: "read_file", Arguments: `{"pa`}},
	})
	agg.Add([]DeltaToolCall{
		{Index: 0, Function: ToolCallFunction{Arguments: `th":"a.go"}`}},
	})

	calls := agg.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "read_file", calls[0].Function.Name)
	require.JSONEq(t, `{"path":"a.go"}`, calls[0].Function.Arguments)
}

func TestToolCallAggregatorPreservesFirstSeenOrder(t *testing.T) {
	agg := NewToolCallAggregator()
	agg.Add([]DeltaToolCall{{Index: 1, ID: "second"}})
	agg.Add([]DeltaToolCall{{Index: 0, ID: "first"}})

	calls := agg.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "second", calls[0].ID)
	require.Equal(t, "first", calls[1].ID)
}
