package chatflow

// ItemType discriminates the chat flow item union.
type ItemType string

const (
	TypeStageStart           ItemType = "stage_start"
	TypeUserMessage          ItemType = "user_message"
	TypeThought              ItemType = "thought"
	TypeNativeThinking       ItemType = "native_thinking"
	TypeIntermediateResponse ItemType = "intermediate_response"
	TypeToolCall             ItemType = "tool_call"
	TypeSummarization        ItemType = "summarization"
	TypeFinalAnswer          ItemType = "final_answer"
	TypeForcedConclusion     ItemType = "forced_conclusion"
	TypeNativeToolUsage      ItemType = "native_tool_usage"
)

// Item is one entry of the flattened chat transcript. TimestampUs is the
// sole ordering key; ties are broken by emission order under a stable sort.
// MCPEventID and LLMInteractionID are opaque cross-references used for
// stream/DB matching and are never parsed.
type Item struct {
	Type        ItemType `json:"type"`
	TimestampUs int64    `json:"timestamp_us"`

	StageID         string `json:"stage_id,omitempty"`
	StageName       string `json:"stage_name,omitempty"`
	ExecutionID     string `json:"execution_id,omitempty"`
	ExecutionAgent  string `json:"execution_agent,omitempty"`
	IsParallelStage bool   `json:"is_parallel_stage,omitempty"`
	IsChatStage     bool   `json:"is_chat_stage,omitempty"`

	Content      string  `json:"content,omitempty"`
	Author       string  `json:"author,omitempty"`
	MessageID    string  `json:"message_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	DurationMs   float64 `json:"duration_ms,omitempty"`

	ToolName      string         `json:"tool_name,omitempty"`
	ToolArguments map[string]any `json:"tool_arguments,omitempty"`
	ToolResult    any            `json:"tool_result,omitempty"`
	ServerName    string         `json:"server_name,omitempty"`
	Success       *bool          `json:"success,omitempty"`

	MCPEventID       string `json:"mcp_event_id,omitempty"`
	LLMInteractionID string `json:"llm_interaction_id,omitempty"`

	NativeTools *NativeToolsUsage `json:"native_tools,omitempty"`
}

// Succeeded reports tool call success, defaulting to true unless the source
// record said false explicitly.
func (it *Item) Succeeded() bool {
	return it.Success == nil || *it.Success
}
