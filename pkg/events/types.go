package events

// Wire event types delivered on a session's channel. Unknown types are
// ignored by consumers.
const (
	EventToolCallStarted = "mcp.tool_call.started"
	EventStreamChunk     = "llm.stream.chunk"
	EventStageStarted    = "stage.started"
	EventStageCompleted  = "stage.completed"
	EventStageFailed     = "stage.failed"
)

// Stream types carried by chunk events. They name the chat item the stream
// will eventually confirm as.
const (
	StreamThought              = "thought"
	StreamFinalAnswer          = "final_answer"
	StreamForcedConclusion     = "forced_conclusion"
	StreamNativeThinking       = "native_thinking"
	StreamIntermediateResponse = "intermediate_response"
	StreamSummarization        = "summarization"
)

// SessionChannel returns the event channel name for one session.
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}

// ToolCallStarted announces that a tool invocation began. It has no
// partial/complete notion; the matching durable tool_call item appears in
// a later snapshot.
type ToolCallStarted struct {
	Type            string         `json:"type"`
	CommunicationID string         `json:"communication_id"`
	ToolName        string         `json:"tool_name"`
	ToolArguments   map[string]any `json:"tool_arguments,omitempty"`
	ServerName      string         `json:"server_name,omitempty"`
	StageID         string         `json:"stage_id,omitempty"`
}

// StreamChunk carries the full accumulated text of one in-flight stream.
// Each chunk replaces the previous one (last-write-wins, not a delta).
type StreamChunk struct {
	Type             string `json:"type"`
	StreamType       string `json:"stream_type"`
	Chunk            string `json:"chunk"`
	IsComplete       bool   `json:"is_complete"`
	StageExecutionID string `json:"stage_execution_id,omitempty"`
	MCPEventID       string `json:"mcp_event_id,omitempty"`
}

// StageStatus announces a stage lifecycle transition. The chat fields are
// set when the stage is a follow-up chat turn.
type StageStatus struct {
	Type                  string `json:"type"`
	StageID               string `json:"stage_id,omitempty"`
	ChatID                string `json:"chat_id,omitempty"`
	ChatUserMessageID     string `json:"chat_user_message_id,omitempty"`
	ChatUserMessageText   string `json:"chat_user_message_text,omitempty"`
	ChatUserMessageAuthor string `json:"chat_user_message_author,omitempty"`
}
