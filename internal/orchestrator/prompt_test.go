package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeloop/agentcore/internal/memory"
)

func TestBuildSystemPromptUsesDefaultWhenNoOverride(t *testing.T) {
	got := BuildSystemPrompt(PromptContext{}, nil)
	require.Contains(t, got, defaultSystemRole)
}

func TestBuildSystemPromptUsesOverrideVerbatim(t *testing.T) {
	got := BuildSystemPrompt(PromptContext{SystemPromptOverride: "custom role"}, nil)
	require.Contains(t, got, "custom role")
	require.NotContains(t, got, defaultSystemRole)
}

func TestBuildSystemPromptOmitsMemorySectionWhenEmpty(t *testing.T) {
	got := BuildSystemPrompt(PromptContext{}, nil)
	require.NotContains(t, got, memorySentinelOpen)
}

func TestBuildSystemPromptIncludesSentinelDelimitedMemories(t *testing.T) {
	retrieved := []memory.SearchResult{
		{Memory: memory.Memory{Content: "likes tabs over spaces"}, Similarity: 0.91},
	}
	got := BuildSystemPrompt(PromptContext{}, retrieved)
	require.Contains(t, got, memorySentinelOpen)
	require.Contains(t, got, memorySentinelClose)
	require.Contains(t, got, "likes tabs over spaces")
}

func TestBuildSystemPromptIncludesPlanModeAddendum(t *testing.T) {
	got := BuildSystemPrompt(PromptContext{PlanMode: true}, nil)
	require.Contains(t, got, planModeAddendum)
}

func TestBuildSystemPromptOmitsPlanModeAddendumByDefault(t *testing.T) {
	got := BuildSystemPrompt(PromptContext{}, nil)
	require.NotContains(t, got, planModeAddendum)
}

func TestBuildSystemPromptIncludesWorkspaceListingAndContextFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "internal"), 0o755))

	listing, _, err := LoadWorkspaceContext(dir, "")
	require.NoError(t, err)

	got := BuildSystemPrompt(PromptContext{
		WorkspaceListing:    listing,
		ContextFileContents: "this project uses cosine similarity for memory search",
	}, nil)

	require.Contains(t, got, "main.go")
	require.Contains(t, got, "internal/")
	require.Contains(t, got, "cosine similarity")
}

func TestLoadWorkspaceContextReturnsEmptyContextFileWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	listing, contextFile, err := LoadWorkspaceContext(dir, "AGENTS.md")
	require.NoError(t, err)
	require.Empty(t, contextFile)
	require.Empty(t, listing)
}

func TestLoadWorkspaceContextReadsContextFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("house rules"), 0o644))

	_, contextFile, err := LoadWorkspaceContext(dir, "AGENTS.md")
	require.NoError(t, err)
	require.Equal(t, "house rules", contextFile)
}
