package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// parseArgs best-effort parses a tool call's raw JSON argument string into
// a map, for forwarding to on_tool_start and the hook payload. Malformed
// JSON yields an empty map rather than failing the turn; the executor
// performs the authoritative parse (and error reporting) in C2.
func parseArgs(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}

// emitWordByWord implements spec.md §4.8's final-turn emission rule:
// content with no pending tool calls is streamed to on_chunk one word at
// a time with ~20ms spacing, so a terminal renderer can animate it.
func emitWordByWord(ctx context.Context, content string, onChunk func(string)) {
	words := strings.Fields(content)
	if len(words) == 0 {
		return
	}
	for i, w := range words {
		chunk := w
		if i < len(words)-1 {
			chunk += " "
		}
		onChunk(chunk)
		if i < len(words)-1 {
			select {
			case <-time.After(chunkWordDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}
