package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/reconcile"
)

func TestTranscriptPlain(t *testing.T) {
	r := NewRenderer(true, "")

	ok := true
	items := []chatflow.Item{
		{Type: chatflow.TypeStageStart, TimestampUs: 1_000_000, StageName: "investigation", Status: "completed"},
		{Type: chatflow.TypeThought, TimestampUs: 1_100_000, Content: "check pods"},
		{Type: chatflow.TypeToolCall, TimestampUs: 1_150_000, ToolName: "get_pods", Success: &ok,
			ToolArguments: map[string]any{"namespace": "default"}},
		{Type: chatflow.TypeFinalAnswer, TimestampUs: 1_200_000, Content: "all healthy"},
	}

	out := r.Transcript(items, nil)
	assert.Contains(t, out, "stage: investigation")
	assert.Contains(t, out, "thought:")
	assert.Contains(t, out, "check pods")
	assert.Contains(t, out, "tool get_pods [ok]:")
	assert.Contains(t, out, `"namespace":"default"`)
	assert.Contains(t, out, "final answer:")
}

func TestTranscriptMarksLiveEntries(t *testing.T) {
	r := NewRenderer(true, "")

	live := []reconcile.Entry{{
		Type:    chatflow.TypeThought,
		Content: "still streaming",
	}}

	out := r.Transcript(nil, live)
	assert.Contains(t, out, "(live)")
	assert.Contains(t, out, "still streaming")
}

func TestFailedToolCallLabel(t *testing.T) {
	r := NewRenderer(true, "")

	failed := false
	items := []chatflow.Item{{
		Type: chatflow.TypeToolCall, ToolName: "get_logs",
		Success: &failed, ErrorMessage: "connection refused",
	}}

	out := r.Transcript(items, nil)
	assert.Contains(t, out, "tool get_logs [failed]:")
	assert.Contains(t, out, "connection refused")
}

func TestNativeToolUsageBody(t *testing.T) {
	r := NewRenderer(true, "")

	items := []chatflow.Item{{
		Type: chatflow.TypeNativeToolUsage,
		NativeTools: &chatflow.NativeToolsUsage{
			Search: &chatflow.SearchUsage{Queries: []string{"q1", "q2"}, QueryCount: 2},
			CodeExecution: &chatflow.CodeExecutionUsage{
				Detected:     true,
				CodeBlocks:   []chatflow.CodeBlock{{Language: "python", Code: "print(1)"}},
				OutputBlocks: []chatflow.OutputBlock{{Outcome: "ok", Output: "1"}},
				CodeCount:    1,
				OutputCount:  1,
			},
		},
	}}

	out := r.Transcript(items, nil)
	assert.Contains(t, out, "web search (2): q1; q2")
	assert.Contains(t, out, "print(1)")
	assert.Contains(t, out, "[ok] 1")
}
