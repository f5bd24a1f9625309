package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgeloop/agentcore/internal/agent"
	"github.com/forgeloop/agentcore/internal/hooks"
	"github.com/forgeloop/agentcore/internal/llmclient"
	"github.com/forgeloop/agentcore/internal/memory"
	"github.com/forgeloop/agentcore/internal/tools"
)

// DefaultMaxTurns is the orchestrator's default agent-loop bound, per
// spec.md §4.8 ("orchestrator default 15").
const DefaultMaxTurns = 15

// memoryQueryLimit is the candidate count the orchestrator asks C6 for on
// every turn, per spec.md §4.9 step 2.
const memoryQueryLimit = 5

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Completer    agent.Completer
	Registry     *tools.Registry
	Executor     *tools.Executor
	HookPipeline *hooks.Pipeline
	Memory       *memory.Store // optional; nil disables long-term-memory retrieval
	Model        string
	MaxTurns     int
	SessionID    string

	WorkspaceRoot        string
	ContextFileName      string
	SystemPromptOverride string
	PlanMode             bool

	Logger *slog.Logger
}

// Orchestrator owns the running multi-turn history and assembles the
// system prompt for each turn's fresh agent loop, per spec.md §4.9.
type Orchestrator struct {
	cfg Config

	history          []llmclient.Message
	workspaceListing string
	contextFile      string
	subAgents        map[string]SubAgentProfile
	logger           *slog.Logger
}

// New constructs an Orchestrator and performs the one-time startup load
// spec.md §4.9 describes: a shallow workspace root listing and the
// workspace context file, both loaded once and reused on every
// subsequent turn rather than re-read from disk per Chat call.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var listing, contextFile string
	if cfg.WorkspaceRoot != "" {
		l, cf, err := LoadWorkspaceContext(cfg.WorkspaceRoot, cfg.ContextFileName)
		if err != nil {
			return nil, err
		}
		listing, contextFile = l, cf
	}

	return &Orchestrator{
		cfg:              cfg,
		workspaceListing: listing,
		contextFile:      contextFile,
		subAgents:        defaultSubAgents(),
		logger:           logger,
	}, nil
}

// History returns the running exchange list accumulated so far.
func (o *Orchestrator) History() []llmclient.Message {
	return append([]llmclient.Message(nil), o.history...)
}

// Chat runs one turn of spec.md §4.9's chat(user_message, callbacks)
// algorithm: append to running history, query long-term memory, build
// the system prompt, run a fresh agent loop with prior history, then
// record the assistant's reply.
func (o *Orchestrator) Chat(ctx context.Context, userMessage string, cb agent.Callbacks) (*agent.AgentResponse, error) {
	o.history = append(o.history, llmclient.Message{Role: "user", Content: userMessage})
	priorHistory := o.history[:len(o.history)-1]

	retrieved := o.retrieveMemories(ctx, userMessage)

	systemPrompt := BuildSystemPrompt(PromptContext{
		SystemPromptOverride: o.cfg.SystemPromptOverride,
		WorkspaceListing:     o.workspaceListing,
		ContextFileContents:  o.contextFile,
		PlanMode:             o.cfg.PlanMode,
	}, retrieved)

	loop := agent.New(agent.Config{
		Completer:     o.cfg.Completer,
		Executor:      o.cfg.Executor,
		HookPipeline:  o.cfg.HookPipeline,
		Model:         o.cfg.Model,
		MaxIterations: o.cfg.MaxTurns,
		SessionID:     o.cfg.SessionID,
		ProjectPath:   o.cfg.WorkspaceRoot,
		Logger:        o.logger,
	})

	resp, err := loop.Run(ctx, systemPrompt, userMessage, priorHistory, toolSpecs(o.cfg.Registry, nil), cb)
	if err != nil {
		// the just-appended user message stays in history even on failure,
		// matching spec.md's "append, then act" ordering; only the assistant
		// reply is conditional on success.
		return resp, err
	}

	o.history = append(o.history, llmclient.Message{Role: "assistant", Content: resp.Content})
	return resp, nil
}

// retrieveMemories queries C6 with the user's message, per spec.md §4.9
// step 2. A nil memory store or a query failure yields no results rather
// than failing the turn.
func (o *Orchestrator) retrieveMemories(ctx context.Context, userMessage string) []memory.SearchResult {
	if o.cfg.Memory == nil {
		return nil
	}
	results, err := o.cfg.Memory.Search(ctx, userMessage, memoryQueryLimit, memory.DefaultMinSimilarity)
	if err != nil {
		o.logger.Warn("orchestrator: memory search failed", "error", err)
		return nil
	}
	return results
}

// RunSubAgent runs a predefined specialization against task, per spec.md
// §4.9: it does not share the main running history, and its tool schema
// list is restricted to the profile's AllowedTools.
func (o *Orchestrator) RunSubAgent(ctx context.Context, name, task string, cb agent.Callbacks) (*agent.AgentResponse, error) {
	profile, ok := o.subAgents[name]
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown sub-agent %q", name)
	}

	loop := agent.New(agent.Config{
		Completer:     o.cfg.Completer,
		Executor:      o.cfg.Executor,
		HookPipeline:  o.cfg.HookPipeline,
		Model:         o.cfg.Model,
		MaxIterations: profile.MaxIterations,
		SessionID:     o.cfg.SessionID,
		ProjectPath:   o.cfg.WorkspaceRoot,
		Logger:        o.logger,
	})

	return loop.Run(ctx, profile.SystemPrompt, task, nil, toolSpecs(o.cfg.Registry, profile.AllowedTools), cb)
}

// toolSpecs projects the registry's schema views into the llmclient wire
// shape, optionally filtered to an allow-list. A nil allow-list returns
// the full set.
func toolSpecs(registry *tools.Registry, allow []string) []llmclient.ToolSpec {
	if registry == nil {
		return nil
	}
	var allowSet map[string]bool
	if allow != nil {
		allowSet = make(map[string]bool, len(allow))
		for _, name := range allow {
			allowSet[name] = true
		}
	}

	views := registry.Schemas()
	specs := make([]llmclient.ToolSpec, 0, len(views))
	for _, v := range views {
		if allowSet != nil && !allowSet[v.Name] {
			continue
		}
		specs = append(specs, llmclient.ToolSpec{
			Type: "function",
			Function: llmclient.ToolFunction{
				Name:        v.Name,
				Description: v.Description,
				Parameters:  v.Schema,
			},
		})
	}
	return specs
}
