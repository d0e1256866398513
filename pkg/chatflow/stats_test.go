package chatflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	ok := true
	failed := false
	items := []Item{
		{Type: TypeStageStart},
		{Type: TypeThought},
		{Type: TypeThought},
		{Type: TypeNativeThinking},
		{Type: TypeIntermediateResponse},
		{Type: TypeToolCall, Success: &ok},
		{Type: TypeToolCall, Success: &failed},
		{Type: TypeToolCall}, // absent success counts as successful
		{Type: TypeSummarization},
		{Type: TypeFinalAnswer},
		{Type: TypeForcedConclusion},
	}

	s := Summarize(items)
	assert.Equal(t, Summary{
		TotalItems:                 11,
		ThoughtsCount:              2,
		ToolCallsCount:             3,
		FinalAnswersCount:          1,
		ForcedConclusionsCount:     1,
		SuccessfulToolCalls:        2,
		NativeThinkingCount:        1,
		IntermediateResponsesCount: 1,
	}, s)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
