package reconcile

import (
	"github.com/sessionflow/sessionflow/pkg/chatflow"
)

// Entry is one transient overlay item: a chat item sourced from the live
// event channel that has not yet been confirmed by the durable view.
//
// Lifecycle: created on the first partial/complete event for its key,
// updated in place as further chunks arrive, deleted once matched to a
// confirmed item or once the owning session reaches a terminal state.
type Entry struct {
	Key         string
	Type        chatflow.ItemType
	Content     string
	MCPEventID  string
	MessageID   string
	StageID     string
	ExecutionID string

	ToolName      string
	ToolArguments map[string]any
	ServerName    string

	// WaitingForDB is set once the stream completed (or immediately for
	// events with no partial notion); only such entries are eligible for
	// retirement by the matching pass.
	WaitingForDB bool

	// CreatedAtUs orders overlay entries after the durable list when the
	// two are merged for display.
	CreatedAtUs int64

	seq int
}

// Item converts the overlay entry into a chat flow item for display.
func (e *Entry) Item() chatflow.Item {
	return chatflow.Item{
		Type:          e.Type,
		TimestampUs:   e.CreatedAtUs,
		StageID:       e.StageID,
		ExecutionID:   e.ExecutionID,
		Content:       e.Content,
		MessageID:     e.MessageID,
		ToolName:      e.ToolName,
		ToolArguments: e.ToolArguments,
		ServerName:    e.ServerName,
		MCPEventID:    e.MCPEventID,
	}
}
