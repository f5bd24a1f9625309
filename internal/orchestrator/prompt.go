// Package orchestrator implements the Orchestrator (C9) from spec.md
// §4.9: system-prompt assembly, running multi-turn history, and
// sub-agent dispatch sitting atop the agent loop (C8). Grounded on
// kadirpekel-hector's prompt-slot shape in
// pkg/reasoning/chain_of_thought_strategy.go's GetPromptSlots (a fixed
// set of named sections merged into one system prompt), generalized
// from its reasoning-strategy hook into the static
// template+workspace+memory+mode assembly spec.md requires.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgeloop/agentcore/internal/memory"
)

// defaultSystemRole is the baseline instruction block, in the register of
// hector's ChainOfThoughtStrategy.GetPromptSlots default ("You are an AI
// assistant." plus tool-usage/output-format slots), adapted to a
// terminal coding assistant.
const defaultSystemRole = `You are a terminal-based coding assistant operating inside a developer's workspace.
Use the available tools to inspect the project, make changes, and verify your work.
Take concrete actions rather than only describing them. Be direct and concise.`

// memorySentinelOpen/memorySentinelClose delimit the long-term-memory
// section so a renderer (or a later prompt-debugging pass) can locate and
// strip it without string-matching the surrounding prose, per spec.md
// §4.9 ("sentinel-delimited Long-Term Memory section").
const (
	memorySentinelOpen  = "<<LONG_TERM_MEMORY>>"
	memorySentinelClose = "<</LONG_TERM_MEMORY>>"
)

const planModeAddendum = `You are in plan mode. Do not modify any files or run mutating commands.
Investigate the request and produce a step-by-step plan for the user to approve before any changes are made.`

// PromptContext carries the per-startup, mostly-static inputs to system
// prompt assembly: the custom override (if the host configured one), the
// workspace root listing, and the context file contents.
type PromptContext struct {
	SystemPromptOverride string
	WorkspaceListing     string
	ContextFileContents  string
	PlanMode             bool
}

// LoadWorkspaceContext performs the startup load spec.md §4.9 describes:
// a shallow root directory listing and the workspace context file,
// loaded once.
func LoadWorkspaceContext(workspaceRoot, contextFileName string) (listing string, contextFile string, err error) {
	listing, err = shallowListing(workspaceRoot)
	if err != nil {
		return "", "", fmt.Errorf("orchestrator: list workspace root: %w", err)
	}
	if contextFileName == "" {
		return listing, "", nil
	}
	data, readErr := os.ReadFile(filepath.Join(workspaceRoot, contextFileName))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return listing, "", nil
		}
		return "", "", fmt.Errorf("orchestrator: read context file: %w", readErr)
	}
	return listing, string(data), nil
}

// shallowListing returns a one-entry-per-line listing of workspaceRoot's
// immediate children, directories suffixed with "/", sorted for
// deterministic output.
func shallowListing(workspaceRoot string) (string, error) {
	entries, err := os.ReadDir(workspaceRoot)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// BuildSystemPrompt assembles the system prompt per spec.md §4.9 step 3:
// custom override or default template, then (if present) a sentinel-
// delimited Long-Term Memory section, the directory listing, the context
// file, and a plan-mode addendum.
func BuildSystemPrompt(pc PromptContext, retrieved []memory.SearchResult) string {
	var b strings.Builder

	if pc.SystemPromptOverride != "" {
		b.WriteString(pc.SystemPromptOverride)
	} else {
		b.WriteString(defaultSystemRole)
	}

	if len(retrieved) > 0 {
		b.WriteString("\n\n")
		b.WriteString(memorySentinelOpen)
		b.WriteString("\n")
		for _, r := range retrieved {
			fmt.Fprintf(&b, "- (%.2f) %s\n", r.Similarity, r.Memory.Content)
		}
		b.WriteString(memorySentinelClose)
	}

	if pc.WorkspaceListing != "" {
		b.WriteString("\n\nWorkspace root listing:\n")
		b.WriteString(pc.WorkspaceListing)
	}

	if pc.ContextFileContents != "" {
		b.WriteString("\n\nProject context:\n")
		b.WriteString(pc.ContextFileContents)
	}

	if pc.PlanMode {
		b.WriteString("\n\n")
		b.WriteString(planModeAddendum)
	}

	return b.String()
}
