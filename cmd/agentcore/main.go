// Command agentcore is a thin entry point wiring the tool registry,
// executor, hook pipeline, completion client, memory store, session
// store, agent loop, and orchestrator together into a runnable CLI.
// The interactive terminal renderer itself is out of spec.md's scope;
// this command exists to demonstrate the wiring, grounded on
// kadirpekel-hector's cmd/hector/main.go kong-based command shape.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/forgeloop/agentcore/internal/agent"
	"github.com/forgeloop/agentcore/internal/builtintools"
	"github.com/forgeloop/agentcore/internal/config"
	"github.com/forgeloop/agentcore/internal/hooks"
	"github.com/forgeloop/agentcore/internal/llmclient"
	"github.com/forgeloop/agentcore/internal/memory"
	"github.com/forgeloop/agentcore/internal/orchestrator"
	"github.com/forgeloop/agentcore/internal/session"
	"github.com/forgeloop/agentcore/internal/tools"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat    ChatCmd    `cmd:"" help:"Send one message and print the assistant's reply."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(logger *slog.Logger) error {
	fmt.Println("agentcore dev")
	return nil
}

// ChatCmd runs a single orchestrator turn against the configured model.
type ChatCmd struct {
	Message     string `arg:"" help:"The message to send."`
	Workspace   string `help:"Workspace root directory." default:"."`
	ContextFile string `help:"Workspace context file name, relative to the workspace root." default:"AGENTS.md"`
	PlanMode    bool   `help:"Run in plan mode: no mutating tools."`
}

func (c *ChatCmd) Run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	workspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolving workspace: %w", err)
	}

	registry := tools.NewRegistry()
	if err := builtintools.Register(registry, workspace); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	executor := tools.NewExecutor(registry, logger)
	executor.SetApprovalMode(tools.ApprovalMode(cfg.ApprovalMode))
	executor.SetTruncateChars(cfg.OutputTruncateChars)

	pipeline := hooks.NewPipeline(logger)

	completer := llmclient.New(cfg.APIURL, cfg.APIKey, llmclient.WithLogger(logger))

	memStore, err := memory.Open(filepath.Join(cfg.HomeDir, "memory.db"), completer, completer, cfg.Model, logger)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}
	defer memStore.Close()

	orch, err := orchestrator.New(orchestrator.Config{
		Completer:       completer,
		Registry:        registry,
		Executor:        executor,
		HookPipeline:    pipeline,
		Memory:          memStore,
		Model:           cfg.Model,
		MaxTurns:        cfg.MaxIterations,
		WorkspaceRoot:   workspace,
		ContextFileName: c.ContextFile,
		PlanMode:        c.PlanMode,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	resp, err := orch.Chat(context.Background(), c.Message, agent.Callbacks{
		OnChunk: func(chunk string) { fmt.Print(chunk) },
	})
	if err != nil {
		return fmt.Errorf("chat turn failed: %w", err)
	}
	fmt.Println()

	if err := persistTranscript(orch, workspace, cfg.Model); err != nil {
		logger.Warn("saving workspace history failed", "error", err)
	}

	logger.Debug("chat turn complete",
		"iterations", resp.Iterations,
		"successful_tool_calls", resp.SuccessfulToolCalls,
		"failed_tool_calls", resp.FailedToolCalls,
	)
	return nil
}

// persistTranscript writes the orchestrator's running history to the
// workspace-local history file, per spec.md §6.
func persistTranscript(orch *orchestrator.Orchestrator, workspace, model string) error {
	sess := session.New(workspace, model)
	for _, m := range orch.History() {
		sess.Append(session.Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  m.ToolCalls,
		})
	}
	return sess.SaveWorkspace(filepath.Join(workspace, ".agentcore"))
}

func main() {
	var cli CLI
	parser := kong.Parse(&cli, kong.Name("agentcore"), kong.UsageOnError())

	logger := newLogger(cli.LogLevel)

	err := parser.Run(logger)
	parser.FatalIfErrorf(err)
}
