package chatflow

// Summary is the flat counters object derived from a flattened transcript.
type Summary struct {
	TotalItems                 int `json:"totalItems"`
	ThoughtsCount              int `json:"thoughtsCount"`
	ToolCallsCount             int `json:"toolCallsCount"`
	FinalAnswersCount          int `json:"finalAnswersCount"`
	ForcedConclusionsCount     int `json:"forcedConclusionsCount"`
	SuccessfulToolCalls        int `json:"successfulToolCalls"`
	NativeThinkingCount        int `json:"nativeThinkingCount"`
	IntermediateResponsesCount int `json:"intermediateResponsesCount"`
}

// Summarize computes display counters in a single pass over the durable
// item list. Pure reduction; no ordering concerns.
func Summarize(items []Item) Summary {
	var s Summary
	s.TotalItems = len(items)
	for i := range items {
		switch items[i].Type {
		case TypeThought:
			s.ThoughtsCount++
		case TypeToolCall:
			s.ToolCallsCount++
			if items[i].Succeeded() {
				s.SuccessfulToolCalls++
			}
		case TypeFinalAnswer:
			s.FinalAnswersCount++
		case TypeForcedConclusion:
			s.ForcedConclusionsCount++
		case TypeNativeThinking:
			s.NativeThinkingCount++
		case TypeIntermediateResponse:
			s.IntermediateResponsesCount++
		}
	}
	return s
}
