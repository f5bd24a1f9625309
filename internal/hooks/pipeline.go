package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sync"
)

// Pipeline holds the ordered, per-event handler lists and dispatches
// events, per spec.md §4.3.
type Pipeline struct {
	mu      sync.RWMutex
	byEvent map[Event][]*Descriptor
	logger  *slog.Logger
}

// NewPipeline constructs an empty hook pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{byEvent: make(map[Event][]*Descriptor), logger: logger}
}

// Register appends descriptor to its event's handler list, preserving
// registration order (spec.md's ordering guarantee — no priority field).
func (p *Pipeline) Register(d *Descriptor) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("hooks: descriptor must have a non-empty id")
	}
	if d.InlineFn == nil && d.Command == "" {
		return fmt.Errorf("hooks: descriptor %s must set InlineFn or Command", d.ID)
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.byEvent[d.Event] = append(p.byEvent[d.Event], d)
	return nil
}

// Unregister removes every descriptor with the given id, across all events.
func (p *Pipeline) Unregister(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ev, list := range p.byEvent {
		filtered := list[:0]
		for _, d := range list {
			if d.ID != id {
				filtered = append(filtered, d)
			}
		}
		p.byEvent[ev] = filtered
	}
}

// Execute runs every handler registered for event in registration order,
// skipping handlers whose matcher doesn't match input.ToolName. The first
// Output with Block==true short-circuits the remainder of the pipeline.
func (p *Pipeline) Execute(ctx context.Context, event Event, input Input) []Output {
	p.mu.RLock()
	descriptors := append([]*Descriptor(nil), p.byEvent[event]...)
	p.mu.RUnlock()

	var outputs []Output
	for _, d := range descriptors {
		if !matches(d.Matcher, input.ToolName) {
			continue
		}

		if d.Async {
			go p.runAsync(d, input)
			continue
		}

		out, err := p.runWithTimeout(ctx, d, input)
		if err != nil {
			p.logger.Warn("hook failed", "id", d.ID, "event", event, "error", err)
			continue
		}

		outputs = append(outputs, out)
		if out.Block {
			break
		}
	}
	return outputs
}

func matches(pattern, toolName string) bool {
	if pattern == "" || toolName == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return true
	}
	return re.MatchString(toolName)
}

// runWithTimeout races the handler against d.Timeout. On expiry, the
// losing goroutine is left to finish in the background (its result is
// discarded) and the caller observes a local timeout failure — the
// "first-of" combinator spec.md's design notes call for, implemented with
// a cancellation token (ctx) rather than the hector/ADK pattern's leaked
// timer-reject promise.
func (p *Pipeline) runWithTimeout(ctx context.Context, d *Descriptor, input Input) (Output, error) {
	hctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	type result struct {
		out Output
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("hook %s panicked: %v", d.ID, r)}
			}
		}()
		if d.InlineFn != nil {
			out, err := d.InlineFn(hctx, input)
			ch <- result{out: out, err: err}
			return
		}
		out, err := runCommand(hctx, d, input)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		return res.out, res.err
	case <-hctx.Done():
		return Output{}, fmt.Errorf("hook %s timed out after %s", d.ID, d.Timeout)
	}
}

func (p *Pipeline) runAsync(d *Descriptor, input Input) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("async hook panicked", "id", d.ID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()
	if d.InlineFn != nil {
		if _, err := d.InlineFn(ctx, input); err != nil {
			p.logger.Warn("async hook failed", "id", d.ID, "error", err)
		}
		return
	}
	if _, err := runCommand(ctx, d, input); err != nil {
		p.logger.Warn("async hook failed", "id", d.ID, "error", err)
	}
}

// runCommand executes d.Command via the platform shell, serializing input
// into the HOOK_INPUT environment variable, per spec.md §4.3/§6.
func runCommand(ctx context.Context, d *Descriptor, input Input) (Output, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Output{}, fmt.Errorf("hook %s: marshal input: %w", d.ID, err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", d.Command)
	cmd.Env = append(os.Environ(), "HOOK_INPUT="+string(payload))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		reason := stderr.String()
		if reason == "" {
			reason = fmt.Sprintf("Hook exited with code %d", exitCode(runErr))
		}
		return Output{Block: true, BlockReason: reason}, nil
	}

	out := stdout.Bytes()
	if len(bytes.TrimSpace(out)) == 0 {
		return Output{}, nil
	}

	var parsed struct {
		Block         bool           `json:"block"`
		BlockReason   string         `json:"block_reason"`
		ModifiedInput map[string]any `json:"modified_input"`
		AddContent    string         `json:"add_content"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		// Unparsable output is silently ignored, per spec.md §4.3.
		return Output{}, nil
	}
	return Output{
		Block:         parsed.Block,
		BlockReason:   parsed.BlockReason,
		ModifiedInput: parsed.ModifiedInput,
		AddContent:    parsed.AddContent,
	}, nil
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
