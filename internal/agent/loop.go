// Package agent implements the Agent Loop (C8) from spec.md §4.8: a
// bounded think/act iteration that calls the completion client, dispatches
// tool calls through the executor, and fires hook events around each
// dispatch. Grounded on the bounded-iteration, step-then-check shape of
// kadirpekel-hector's pkg/agent/llmagent/flow.go's Flow.Run, simplified
// from its session-as-source-of-truth/iter.Seq2 event-stream design to
// the direct `run(user_message, callbacks, prior_history) -> AgentResponse`
// contract spec.md requires.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/forgeloop/agentcore/internal/hooks"
	"github.com/forgeloop/agentcore/internal/llmclient"
	"github.com/forgeloop/agentcore/internal/tools"
)

// DefaultMaxIterations is the standalone agent loop's bound, per spec.md
// §4.8 ("default 10; orchestrator default 15").
const DefaultMaxIterations = 10

var thinkSpanPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// chunkWordDelay paces word-by-word emission of final-turn content, per
// spec.md §4.8.
const chunkWordDelay = 20 * time.Millisecond

// Callbacks lets a caller observe the loop's progress without re-entering
// Run, per spec.md §5 ("must not re-enter run").
type Callbacks struct {
	OnChunk     func(text string)
	OnToolStart func(name string, args map[string]any)
	OnToolEnd   func(name string, result string, isError bool)
}

// AgentResponse is the loop's final result, per spec.md §4.8.
type AgentResponse struct {
	Content             string
	ToolsUsed           []string
	Iterations          int
	APITime             time.Duration
	ToolTime            time.Duration
	SuccessfulToolCalls int
	FailedToolCalls     int
	TokenUsage          llmclient.Usage
}

// Completer is the subset of the completion client the loop depends on.
type Completer interface {
	ChatCompletion(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error)
}

// Loop wires together the completion client, tool executor, and hook
// pipeline for one agent turn.
type Loop struct {
	completer     Completer
	executor      *tools.Executor
	hookPipeline  *hooks.Pipeline
	model         string
	maxIterations int
	sessionID     string
	projectPath   string
	logger        *slog.Logger
}

// Config configures a new Loop.
type Config struct {
	Completer     Completer
	Executor      *tools.Executor
	HookPipeline  *hooks.Pipeline
	Model         string
	MaxIterations int
	SessionID     string
	ProjectPath   string
	Logger        *slog.Logger
}

// New constructs a Loop. MaxIterations defaults to DefaultMaxIterations
// when zero.
func New(cfg Config) *Loop {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		completer:     cfg.Completer,
		executor:      cfg.Executor,
		hookPipeline:  cfg.HookPipeline,
		model:         cfg.Model,
		maxIterations: maxIter,
		sessionID:     cfg.SessionID,
		projectPath:   cfg.ProjectPath,
		logger:        logger,
	}
}

// Run executes one bounded agent turn, per spec.md §4.8's contract:
// prepend the system prompt, replay prior history, append the user
// message, then iterate think/act until the assistant stops requesting
// tools or max_iterations is exhausted.
func (l *Loop) Run(ctx context.Context, systemPrompt, userMessage string, priorHistory []llmclient.Message, toolSpecs []llmclient.ToolSpec, cb Callbacks) (*AgentResponse, error) {
	messages := make([]llmclient.Message, 0, len(priorHistory)+2)
	messages = append(messages, llmclient.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, priorHistory...)
	messages = append(messages, llmclient.Message{Role: "user", Content: userMessage})

	resp := &AgentResponse{}

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		resp.Iterations = iteration + 1

		apiStart := time.Now()
		completion, err := l.completer.ChatCompletion(ctx, llmclient.ChatRequest{
			Model:    l.model,
			Messages: messages,
			Tools:    toolSpecs,
		})
		resp.APITime += time.Since(apiStart)
		if err != nil {
			return resp, fmt.Errorf("agent: chat completion failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return resp, fmt.Errorf("agent: chat completion returned no choices")
		}

		accumulateUsage(&resp.TokenUsage, completion.Usage)

		assistantMsg := completion.Choices[0].Message
		content := stripThink(assistantMsg.Content)

		toolCalls := assistantMsg.ToolCalls
		if len(toolCalls) == 0 {
			extracted, stripped := llmclient.ExtractToolCalls(content)
			if len(extracted) > 0 {
				toolCalls = extracted
				content = stripped
			}
		}

		assistantMsg.Content = content
		assistantMsg.ToolCalls = toolCalls
		messages = append(messages, assistantMsg)

		if content != "" && cb.OnChunk != nil {
			if len(toolCalls) == 0 {
				emitWordByWord(ctx, content, cb.OnChunk)
			} else {
				cb.OnChunk(content + "\n\n")
			}
		}

		if len(toolCalls) == 0 {
			resp.Content = content
			return resp, nil
		}

		for _, call := range toolCalls {
			toolMsg := l.dispatchToolCall(ctx, call, resp, cb)
			messages = append(messages, toolMsg)
		}
		resp.Content = content
	}

	return resp, nil
}

// dispatchToolCall implements spec.md §4.8 step 5: fire PreToolUse (any
// block skips dispatch), invoke the executor, fire PostToolUse or
// PostToolUseFailure, and return the tool-role result message.
func (l *Loop) dispatchToolCall(ctx context.Context, call llmclient.ToolCall, resp *AgentResponse, cb Callbacks) llmclient.Message {
	args := parseArgs(call.Function.Arguments)

	if cb.OnToolStart != nil {
		cb.OnToolStart(call.Function.Name, args)
	}

	hookInput := hooks.Input{
		SessionID:   l.sessionID,
		ProjectPath: l.projectPath,
		Model:       l.model,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ToolName:    call.Function.Name,
		ToolInput:   args,
	}

	if outs := l.hookPipeline.Execute(ctx, hooks.PreToolUse, hookInput); anyBlocked(outs) {
		reason := blockReason(outs)
		resultText := fmt.Sprintf("Tool blocked by hook: %s", reason)
		resp.FailedToolCalls++
		if cb.OnToolEnd != nil {
			cb.OnToolEnd(call.Function.Name, resultText, true)
		}
		return llmclient.Message{Role: "tool", Content: resultText, ToolCallID: call.ID, Name: call.Function.Name}
	}

	toolStart := time.Now()
	result := l.executor.Execute(ctx, tools.Call{ID: call.ID, Name: call.Function.Name, Arguments: call.Function.Arguments})
	resp.ToolTime += time.Since(toolStart)

	hookInput.ToolOutput = result.Content
	hookInput.Duration = time.Since(toolStart).Seconds()

	if result.IsError {
		resp.FailedToolCalls++
		hookInput.Error = result.Content
		l.hookPipeline.Execute(ctx, hooks.PostToolUseFailure, hookInput)
	} else {
		resp.SuccessfulToolCalls++
		l.hookPipeline.Execute(ctx, hooks.PostToolUse, hookInput)
	}

	resp.ToolsUsed = append(resp.ToolsUsed, call.Function.Name)

	if cb.OnToolEnd != nil {
		end := result.Content
		if result.IsError {
			end = "Error"
		}
		cb.OnToolEnd(call.Function.Name, end, result.IsError)
	}

	return llmclient.Message{Role: "tool", Content: result.Content, ToolCallID: call.ID, Name: call.Function.Name}
}

func anyBlocked(outs []hooks.Output) bool {
	for _, o := range outs {
		if o.Block {
			return true
		}
	}
	return false
}

func blockReason(outs []hooks.Output) string {
	for _, o := range outs {
		if o.Block && o.BlockReason != "" {
			return o.BlockReason
		}
	}
	return "blocked"
}

func stripThink(content string) string {
	return thinkSpanPattern.ReplaceAllString(content, "")
}

func accumulateUsage(total *llmclient.Usage, delta llmclient.Usage) {
	total.PromptTokens += delta.PromptTokens
	total.CompletionTokens += delta.CompletionTokens
	total.TotalTokens += delta.TotalTokens
	total.CacheReadTokens += delta.CacheReadTokens
	total.ReasoningTokens += delta.ReasoningTokens
}
