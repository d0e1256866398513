package session

import "strings"

// Session statuses considered terminal. A terminal session produces no
// further snapshots or stream events, except for follow-up chat stages.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
	StatusTimedOut   = "timed_out"
)

// Interaction types carried in LLMInteraction details. Unknown types are
// skipped by consumers rather than rejected.
const (
	InteractionInvestigation    = "investigation"
	InteractionFinalAnalysis    = "final_analysis"
	InteractionForcedConclusion = "forced_conclusion"
	InteractionSummarization    = "summarization"
)

// CommunicationToolCall is the only MCP communication type that surfaces
// in the chat flow.
const CommunicationToolCall = "tool_call"

// Session is a read-only snapshot of one agent session, fetched as a full
// replacement document by an external collaborator.
type Session struct {
	SessionID string  `json:"session_id"`
	Status    string  `json:"status"`
	AlertType string  `json:"alert_type,omitempty"`
	Stages    []Stage `json:"stages"`
}

// Execution is one agent/model run: either a stage's own run or one of a
// parallel stage's sub-executions.
type Execution struct {
	ExecutionID       string             `json:"execution_id"`
	Agent             string             `json:"agent,omitempty"`
	IterationStrategy string             `json:"iteration_strategy,omitempty"`
	LLMInteractions   []LLMInteraction   `json:"llm_interactions,omitempty"`
	MCPCommunications []MCPCommunication `json:"mcp_communications,omitempty"`
}

// Stage is one unit of agent work. When ParallelExecutions is non-empty the
// stage itself contributes no interactions directly; only its executions do.
type Stage struct {
	Execution

	StageID            string           `json:"stage_id,omitempty"`
	StageName          string           `json:"stage_name"`
	Status             string           `json:"status"`
	StartedAtUs        int64            `json:"started_at_us,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
	ChatUserMessage    *ChatUserMessage `json:"chat_user_message,omitempty"`
	ParallelExecutions []Execution      `json:"parallel_executions,omitempty"`
}

// ChatUserMessage signals a follow-up chat turn on the stage.
type ChatUserMessage struct {
	MessageID   string `json:"message_id,omitempty"`
	Content     string `json:"content"`
	Author      string `json:"author,omitempty"`
	CreatedAtUs int64  `json:"created_at_us,omitempty"`
}

// LLMInteraction is one request/response cycle with a language model.
type LLMInteraction struct {
	ID          string             `json:"id,omitempty"`
	EventID     string             `json:"event_id,omitempty"`
	TimestampUs int64              `json:"timestamp_us"`
	DurationMs  float64            `json:"duration_ms,omitempty"`
	Details     InteractionDetails `json:"details"`
}

// InteractionDetails carries the conversation and any native-tool response
// metadata the provider attached to the interaction.
type InteractionDetails struct {
	InteractionType  string                `json:"interaction_type"`
	Messages         []ConversationMessage `json:"messages,omitempty"`
	ThinkingContent  string                `json:"thinking_content,omitempty"`
	MCPEventID       string                `json:"mcp_event_id,omitempty"`
	ResponseMetadata map[string]any        `json:"response_metadata,omitempty"`
}

// ConversationMessage is one message of an interaction's conversation.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MCPCommunication is one exchange with an MCP server.
type MCPCommunication struct {
	ID          string     `json:"id,omitempty"`
	EventID     string     `json:"event_id,omitempty"`
	TimestampUs int64      `json:"timestamp_us"`
	DurationMs  float64    `json:"duration_ms,omitempty"`
	Details     MCPDetails `json:"details"`
}

// MCPDetails describes a tool invocation and its result. Success is a
// pointer so that "absent" and "explicitly false" stay distinguishable.
type MCPDetails struct {
	CommunicationType string         `json:"communication_type"`
	ToolName          string         `json:"tool_name,omitempty"`
	ToolArguments     map[string]any `json:"tool_arguments,omitempty"`
	ToolResult        any            `json:"tool_result,omitempty"`
	ServerName        string         `json:"server_name,omitempty"`
	Success           *bool          `json:"success,omitempty"`
	ErrorMessage      string         `json:"error_message,omitempty"`
}

// IsTerminal reports whether the session has reached a terminal status.
func (s *Session) IsTerminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// IsChat reports whether the stage is a follow-up chat turn.
func (st *Stage) IsChat() bool {
	return st.ChatUserMessage != nil
}

// IsParallel reports whether the stage fans out into sub-executions.
func (st *Stage) IsParallel() bool {
	return len(st.ParallelExecutions) > 0
}

// Executions returns the stage's execution list: the declared parallel
// executions when present, otherwise the stage itself as sole execution.
func (st *Stage) Executions() []Execution {
	if st.IsParallel() {
		return st.ParallelExecutions
	}
	return []Execution{st.Execution}
}

// UsesNativeThinking reports whether the execution runs a strategy that
// exposes explicit thinking content instead of the ReAct text convention.
func (e *Execution) UsesNativeThinking() bool {
	strategy := strings.ToLower(strings.ReplaceAll(e.IterationStrategy, "_", "-"))
	return strings.HasPrefix(strategy, "native")
}

// EventOrID returns the interaction's stable cross-reference identifier,
// preferring event_id over id when both exist.
func (i *LLMInteraction) EventOrID() string {
	if i.EventID != "" {
		return i.EventID
	}
	return i.ID
}

// EventOrID returns the communication's stable cross-reference identifier,
// preferring event_id over id when both exist.
func (c *MCPCommunication) EventOrID() string {
	if c.EventID != "" {
		return c.EventID
	}
	return c.ID
}

// LastAssistantContent returns the content of the last assistant message in
// the interaction's conversation, or "" when there is none.
func (i *LLMInteraction) LastAssistantContent() string {
	msgs := i.Details.Messages
	for j := len(msgs) - 1; j >= 0; j-- {
		if msgs[j].Role == "assistant" {
			return msgs[j].Content
		}
	}
	return ""
}

// AssistantContents returns the set of assistant message contents in the
// interaction's conversation. Used by the flattener to suppress responses
// inherited from a prior interaction.
func (i *LLMInteraction) AssistantContents() map[string]struct{} {
	seen := make(map[string]struct{})
	for _, m := range i.Details.Messages {
		if m.Role == "assistant" && m.Content != "" {
			seen[m.Content] = struct{}{}
		}
	}
	return seen
}
