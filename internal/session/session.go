// Package session implements the Session Store (C7) from spec.md §4.7: an
// in-memory transcript with counters, a compression algorithm, and disk
// persistence to both a workspace-local history file and a global
// named-session index. Grounded on the Service/Get/Create/List/Delete
// shape of kadirpekel-hector's pkg/session/session.go, simplified from its
// event-sourced agent.State/agent.Events model down to spec.md's flat
// message-list + counters contract.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgeloop/agentcore/internal/llmclient"
)

// DefaultHighWaterMark is the message-count ceiling that triggers
// compression, per spec.md §4.7.
const DefaultHighWaterMark = 100

// recentKeepCount is how many of the most recent messages compression
// always preserves verbatim.
const recentKeepCount = 20

// topicHintSampleSize and topicHintCharLimit bound the placeholder topic
// hint compression synthesizes, per spec.md §4.7.
const topicHintSampleSize = 5
const topicHintCharLimit = 50

// Message is one transcript entry.
type Message struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	Name       string               `json:"name,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolCalls  []llmclient.ToolCall `json:"tool_calls,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Counters tracks the aggregate metrics spec.md §4.7 requires to survive
// compression.
type Counters struct {
	SuccessfulToolCalls int            `json:"successful_tool_calls"`
	FailedToolCalls     int            `json:"failed_tool_calls"`
	APITimeSeconds      float64        `json:"api_time_seconds"`
	ToolTimeSeconds     float64        `json:"tool_time_seconds"`
	TokensByModel       map[string]int `json:"tokens_by_model"`
}

// Session is the mutable in-memory transcript plus its metadata.
type Session struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	ProjectPath    string    `json:"project_path"`
	Model          string    `json:"model"`
	StartTime      time.Time `json:"start_time"`
	LastAccessTime time.Time `json:"last_access_time"`
	Messages       []Message `json:"messages"`
	Counters       Counters  `json:"counters"`
}

// New creates a fresh session rooted at projectPath. The id is a UUIDv7
// (Unix-timestamp prefix plus random suffix), per spec.md §4.7's
// "time- plus entropy-based" session id requirement.
func New(projectPath, model string) *Session {
	now := time.Now()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Session{
		ID:             id.String(),
		ProjectPath:    projectPath,
		Model:          model,
		StartTime:      now,
		LastAccessTime: now,
		Counters:       Counters{TokensByModel: make(map[string]int)},
	}
}

// MessageCount returns len(Messages), the invariant spec.md §4.7 names.
func (s *Session) MessageCount() int { return len(s.Messages) }

// Append adds msg to the transcript and stamps LastAccessTime.
func (s *Session) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.LastAccessTime = time.Now()
}

// RecordToolCall increments the success/failure counter for one
// tool-dispatch attempt.
func (s *Session) RecordToolCall(success bool) {
	if success {
		s.Counters.SuccessfulToolCalls++
	} else {
		s.Counters.FailedToolCalls++
	}
}

// RecordAPITime accumulates time spent waiting on the completion endpoint.
func (s *Session) RecordAPITime(d time.Duration) { s.Counters.APITimeSeconds += d.Seconds() }

// RecordToolTime accumulates time spent executing tools.
func (s *Session) RecordToolTime(d time.Duration) { s.Counters.ToolTimeSeconds += d.Seconds() }

// RecordTokens adds tokens used against model to the per-model breakdown.
func (s *Session) RecordTokens(model string, tokens int) {
	if s.Counters.TokensByModel == nil {
		s.Counters.TokensByModel = make(map[string]int)
	}
	s.Counters.TokensByModel[model] += tokens
}

// Compress implements spec.md §4.7's compression algorithm: when message
// count exceeds highWaterMark, the first message is preserved if it is a
// system message, the most recent recentKeepCount messages are preserved,
// and everything in between collapses into one assistant-role placeholder
// summarizing the removed count plus a topic hint.
func (s *Session) Compress(highWaterMark int) {
	if highWaterMark <= 0 {
		highWaterMark = DefaultHighWaterMark
	}
	if len(s.Messages) <= highWaterMark {
		return
	}

	var preserved []Message
	rest := s.Messages

	hasSystemHead := len(rest) > 0 && rest[0].Role == "system"
	if hasSystemHead {
		preserved = append(preserved, rest[0])
		rest = rest[1:]
	}

	if len(rest) <= recentKeepCount {
		s.Messages = append(preserved, rest...)
		return
	}

	keepFrom := len(rest) - recentKeepCount
	removed := rest[:keepFrom]
	recent := rest[keepFrom:]

	placeholder := Message{
		Role:      "assistant",
		Content:   summarizeRemoved(removed),
		Timestamp: time.Now(),
	}

	merged := append(preserved, placeholder)
	s.Messages = append(merged, recent...)
}

func summarizeRemoved(removed []Message) string {
	var hints []string
	for _, m := range removed {
		if m.Role != "user" {
			continue
		}
		hint := m.Content
		if len(hint) > topicHintCharLimit {
			hint = hint[:topicHintCharLimit]
		}
		hints = append(hints, hint)
		if len(hints) == topicHintSampleSize {
			break
		}
	}

	summary := fmt.Sprintf("[%d earlier messages omitted]", len(removed))
	if len(hints) > 0 {
		summary += " Topics: " + strings.Join(hints, ", ")
	}
	return summary
}

// historyFileName is the workspace-local persisted transcript file, per
// spec.md §6 ("workspace .<tool>/history.json").
const historyFileName = "history.json"

// SaveWorkspace writes the full session to <workspaceDir>/history.json.
func (s *Session) SaveWorkspace(workspaceDir string) error {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return fmt.Errorf("session: create workspace dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal session: %w", err)
	}
	return os.WriteFile(filepath.Join(workspaceDir, historyFileName), data, 0o644)
}

// LoadWorkspace reads a session previously written by SaveWorkspace.
func LoadWorkspace(workspaceDir string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(workspaceDir, historyFileName))
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", historyFileName, err)
	}
	return &s, nil
}
