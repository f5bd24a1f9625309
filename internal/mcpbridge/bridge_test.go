package mcpbridge

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestEnvSliceFormatsKeyValuePairs(t *testing.T) {
	out := envSlice(map[string]string{"FOO": "bar"})
	require.Equal(t, []string{"FOO=bar"}, out)
}

func TestEnvSliceNilForEmptyMap(t *testing.T) {
	require.Nil(t, envSlice(nil))
	require.Nil(t, envSlice(map[string]string{}))
}

func TestFlattenResultSingleTextContent(t *testing.T) {
	resp := &mcp.CallToolResult{}
	resp.Content = []mcp.Content{mcp.TextContent{Type: "text", Text: "hello"}}

	text, err := flattenResult(resp)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

func TestFlattenResultMultipleTextContentsAreJSONArray(t *testing.T) {
	resp := &mcp.CallToolResult{}
	resp.Content = []mcp.Content{
		mcp.TextContent{Type: "text", Text: "a"},
		mcp.TextContent{Type: "text", Text: "b"},
	}

	text, err := flattenResult(resp)
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, text)
}

func TestFlattenResultErrorUsesFirstTextAsMessage(t *testing.T) {
	resp := &mcp.CallToolResult{}
	resp.IsError = true
	resp.Content = []mcp.Content{mcp.TextContent{Type: "text", Text: "bad input"}}

	_, err := flattenResult(resp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad input")
}

func TestFlattenResultErrorWithNoTextUsesGenericMessage(t *testing.T) {
	resp := &mcp.CallToolResult{}
	resp.IsError = true

	_, err := flattenResult(resp)
	require.Error(t, err)
}

func TestConvertSchemaDefaultsToObjectType(t *testing.T) {
	schema := convertSchema(mcp.ToolInputSchema{})
	require.Equal(t, "object", schema.Type)
}
