package orchestrator

// SubAgentProfile is one predefined specialization, per spec.md §4.9:
// a restricted tool schema subset and its own system prompt. Modeled on
// hector's per-strategy PromptSlots (pkg/reasoning/strategy.go) rather
// than its heavier SubAgents()/A2A remote-agent machinery, since
// sub-agents here run in-process against the same tool registry and do
// not share the main running history.
type SubAgentProfile struct {
	Name          string
	SystemPrompt  string
	AllowedTools  []string // nil means "no restriction, full schema list"; a non-nil empty list allows no tools
	MaxIterations int
}

// defaultSubAgents are the three named specializations spec.md §4.9
// requires: coder, researcher, shell.
func defaultSubAgents() map[string]SubAgentProfile {
	return map[string]SubAgentProfile{
		"coder": {
			Name: "coder",
			SystemPrompt: defaultSystemRole + `

You are the coder sub-agent. Your task is narrowly scoped: make the requested
code change using the file and search tools available to you, then report
what you changed. Do not start unrelated refactors.`,
			AllowedTools:  []string{"read_file", "write_file", "edit_file", "list_directory", "search_files", "run_shell"},
			MaxIterations: 15,
		},
		"researcher": {
			Name: "researcher",
			SystemPrompt: defaultSystemRole + `

You are the researcher sub-agent. Investigate the codebase or the provided
context using read-only tools and return a concise written answer. Do not
modify any files.`,
			AllowedTools:  []string{"read_file", "list_directory", "search_files"},
			MaxIterations: 15,
		},
		"shell": {
			Name: "shell",
			SystemPrompt: defaultSystemRole + `

You are the shell sub-agent. Run the requested shell commands, observe their
output, and summarize the result. Prefer the narrowest command that answers
the task.`,
			AllowedTools:  []string{"run_shell"},
			MaxIterations: 15,
		},
	}
}
