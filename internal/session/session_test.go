package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageCountMatchesLenMessages(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.Append(Message{Role: "user", Content: "hi"})
	s.Append(Message{Role: "assistant", Content: "hello"})
	require.Equal(t, 2, s.MessageCount())
	require.Equal(t, len(s.Messages), s.MessageCount())
}

func TestRecordToolCallTracksSuccessAndFailure(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.RecordToolCall(true)
	s.RecordToolCall(true)
	s.RecordToolCall(false)
	require.Equal(t, 2, s.Counters.SuccessfulToolCalls)
	require.Equal(t, 1, s.Counters.FailedToolCalls)
}

func TestRecordTokensAccumulatesPerModel(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.RecordTokens("gpt-4", 100)
	s.RecordTokens("gpt-4", 50)
	s.RecordTokens("gpt-3.5", 10)
	require.Equal(t, 150, s.Counters.TokensByModel["gpt-4"])
	require.Equal(t, 10, s.Counters.TokensByModel["gpt-3.5"])
}

func TestCompressNoopBelowHighWaterMark(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.Append(Message{Role: "system", Content: "sys"})
	for i := 0; i < 5; i++ {
		s.Append(Message{Role: "user", Content: "hi"})
	}
	before := s.MessageCount()
	s.Compress(100)
	require.Equal(t, before, s.MessageCount())
}

func TestCompressPreservesLeadingSystemMessageAndRecentTail(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.Append(Message{Role: "system", Content: "you are an assistant"})
	for i := 0; i < 40; i++ {
		s.Append(Message{Role: "user", Content: "message number"})
		s.Append(Message{Role: "assistant", Content: "ack"})
	}
	s.Compress(10)

	require.Equal(t, "system", s.Messages[0].Role)
	// placeholder + 20 recent messages + leading system message
	require.Equal(t, 22, s.MessageCount())
	require.Equal(t, "assistant", s.Messages[1].Role)
	require.Contains(t, s.Messages[1].Content, "omitted")
}

func TestCompressTopicHintUsesFirstFiveUserMessages(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	s.Append(Message{Role: "system", Content: "sys"})
	for i := 0; i < 10; i++ {
		s.Append(Message{Role: "user", Content: "topic-" + string(rune('a'+i))})
	}
	for i := 0; i < 25; i++ {
		s.Append(Message{Role: "assistant", Content: "filler"})
	}
	s.Compress(5)

	placeholder := s.Messages[1].Content
	require.Contains(t, placeholder, "Topics:")
	require.Equal(t, 5, strings.Count(placeholder, "topic-"))
}

func TestCompressLongHintIsTruncatedTo50Chars(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	longMsg := strings.Repeat("x", 200)
	s.Append(Message{Role: "user", Content: longMsg})
	for i := 0; i < 25; i++ {
		s.Append(Message{Role: "assistant", Content: "filler"})
	}
	s.Compress(5)

	require.Contains(t, s.Messages[0].Content, strings.Repeat("x", 50))
	require.NotContains(t, s.Messages[0].Content, strings.Repeat("x", 51))
}

func TestSaveAndLoadWorkspaceRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".agentcore")
	s := New("/tmp/proj", "gpt")
	s.Append(Message{Role: "user", Content: "hi"})

	require.NoError(t, s.SaveWorkspace(dir))

	loaded, err := LoadWorkspace(dir)
	require.NoError(t, err)
	require.Equal(t, s.ID, loaded.ID)
	require.Equal(t, 1, loaded.MessageCount())
}

func TestAppendStampsTimestampWhenZero(t *testing.T) {
	s := New("/tmp/proj", "gpt")
	before := time.Now()
	s.Append(Message{Role: "user", Content: "hi"})
	require.False(t, s.Messages[0].Timestamp.Before(before.Add(-time.Second)))
}
