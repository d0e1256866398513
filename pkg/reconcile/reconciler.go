package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/events"
	"github.com/sessionflow/sessionflow/pkg/logger"
)

// Reconciler merges a live stream of partial, out-of-order, possibly
// duplicated events with the durable flattened transcript. It owns the
// overlay map and the claim set for exactly one observed session; switching
// sessions goes through Reset.
//
// All methods must be called from a single goroutine (or under an external
// lock): chunk events only mutate the overlay, and the matching pass runs
// strictly after a snapshot update lands.
type Reconciler struct {
	sessionID string
	overlay   map[string]*Entry
	claims    map[string]struct{}
	nextSeq   int

	// matchWindow bounds how many recent confirmed items the matching pass
	// scans; dedupTail bounds the fast-path display duplicate guard.
	matchWindow int
	dedupTail   int

	now func() time.Time
	log *logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMatchWindow overrides the confirmed-item matching window.
func WithMatchWindow(n int) Option {
	return func(r *Reconciler) { r.matchWindow = n }
}

// WithDedupTail overrides the display duplicate-guard window.
func WithDedupTail(n int) Option {
	return func(r *Reconciler) { r.dedupTail = n }
}

// WithClock overrides the clock used to stamp overlay entries.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler for one observed session.
func New(sessionID string, opts ...Option) *Reconciler {
	r := &Reconciler{
		sessionID:   sessionID,
		overlay:     make(map[string]*Entry),
		claims:      make(map[string]struct{}),
		matchWindow: 20,
		dedupTail:   3,
		now:         time.Now,
		log:         logger.WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the identity of the observed session.
func (r *Reconciler) SessionID() string {
	return r.sessionID
}

// Reset switches the observed session, atomically clearing the overlay and
// the claim set. Resetting to the current session is a no-op.
func (r *Reconciler) Reset(sessionID string) {
	if sessionID == r.sessionID {
		return
	}
	r.sessionID = sessionID
	r.overlay = make(map[string]*Entry)
	r.claims = make(map[string]struct{})
	r.log.Debug("Reconciler reset", "session_id", sessionID)
}

// Clear drops all overlay state, keeping the session identity and claims.
// Called when the session reaches a terminal status.
func (r *Reconciler) Clear() {
	r.overlay = make(map[string]*Entry)
}

// Pending returns the number of live overlay entries.
func (r *Reconciler) Pending() int {
	return len(r.overlay)
}

// HandleToolCallStarted seeds an overlay entry for an in-flight tool call.
// Tool calls have no partial/complete notion, so the entry is immediately
// eligible for confirmation matching.
func (r *Reconciler) HandleToolCallStarted(ev events.ToolCallStarted) {
	if ev.CommunicationID == "" {
		return
	}
	entry := r.getOrCreate(ev.CommunicationID, chatflow.TypeToolCall)
	entry.MCPEventID = ev.CommunicationID
	entry.ToolName = ev.ToolName
	entry.ToolArguments = ev.ToolArguments
	entry.ServerName = ev.ServerName
	entry.StageID = ev.StageID
	entry.WaitingForDB = true
}

// HandleStreamChunk updates the overlay entry for one in-flight stream.
// Each chunk carries the full accumulated text, so content is overwritten,
// never concatenated. A complete chunk flips the entry to
// awaiting-confirmation; if no partial entry existed, one is seeded
// directly in that state.
func (r *Reconciler) HandleStreamChunk(ev events.StreamChunk) {
	itemType, ok := streamItemType(ev.StreamType)
	if !ok {
		return
	}

	entry := r.getOrCreate(streamKey(ev), itemType)
	entry.Content = ev.Chunk
	entry.ExecutionID = ev.StageExecutionID
	if ev.StreamType == events.StreamSummarization {
		entry.MCPEventID = ev.MCPEventID
	}
	if ev.IsComplete {
		entry.WaitingForDB = true
	}
}

// HandleChatUserMessage seeds an overlay entry for a just-sent follow-up
// chat message, keyed and later matched by its message identifier.
func (r *Reconciler) HandleChatUserMessage(ev events.StageStatus) {
	if ev.ChatUserMessageID == "" {
		return
	}
	entry := r.getOrCreate(ev.ChatUserMessageID+"-user_message", chatflow.TypeUserMessage)
	entry.MessageID = ev.ChatUserMessageID
	entry.Content = ev.ChatUserMessageText
	entry.StageID = ev.StageID
	entry.WaitingForDB = true
}

// MatchConfirmed retires overlay entries whose confirmed counterpart
// appears in the durable list. It runs once per durable-list update, never
// per streaming chunk.
//
// Matching scans the most recent matchWindow confirmed items oldest-first
// so that the first still-unmatched live entry pairs with the first
// still-unclaimed confirmed item of compatible type (FIFO correspondence).
// Each confirmed item can be claimed at most once.
func (r *Reconciler) MatchConfirmed(confirmed []chatflow.Item) {
	window := confirmed
	if len(window) > r.matchWindow {
		window = window[len(window)-r.matchWindow:]
	}

	for _, entry := range r.entriesInOrder() {
		if !entry.WaitingForDB {
			continue
		}
		for i := range window {
			item := &window[i]
			if !matches(entry, item) {
				continue
			}
			key := claimKey(item)
			if _, claimed := r.claims[key]; claimed {
				continue
			}
			r.claims[key] = struct{}{}
			delete(r.overlay, entry.Key)
			r.log.Debug("Overlay entry retired", "key", entry.Key, "claim", key)
			break
		}
	}
}

// Live returns the overlay entries that should be displayed in addition to
// the durable list. Entries whose type+content (or type+id) already appear
// among the last dedupTail confirmed items are suppressed — a fast-path
// guard that hides obvious duplicates one tick before the authoritative
// matching pass retires them.
func (r *Reconciler) Live(confirmed []chatflow.Item) []Entry {
	tail := confirmed
	if len(tail) > r.dedupTail {
		tail = tail[len(tail)-r.dedupTail:]
	}

	var live []Entry
	for _, entry := range r.entriesInOrder() {
		duplicate := false
		for i := range tail {
			if matches(entry, &tail[i]) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			live = append(live, *entry)
		}
	}
	return live
}

func (r *Reconciler) getOrCreate(key string, itemType chatflow.ItemType) *Entry {
	if entry, ok := r.overlay[key]; ok {
		return entry
	}
	r.nextSeq++
	entry := &Entry{
		Key:         key,
		Type:        itemType,
		CreatedAtUs: r.now().UnixMicro(),
		seq:         r.nextSeq,
	}
	r.overlay[key] = entry
	return entry
}

// entriesInOrder returns overlay entries in creation order, so matching and
// display both approximate FIFO even with several same-type streams in
// flight.
func (r *Reconciler) entriesInOrder() []*Entry {
	entries := make([]*Entry, 0, len(r.overlay))
	for _, e := range r.overlay {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}

// matches applies the type-specific equality rule between a live entry and
// a confirmed item.
func matches(entry *Entry, item *chatflow.Item) bool {
	if entry.Type != item.Type {
		return false
	}
	switch entry.Type {
	case chatflow.TypeToolCall, chatflow.TypeSummarization:
		return entry.MCPEventID != "" && entry.MCPEventID == item.MCPEventID
	case chatflow.TypeUserMessage:
		return entry.MessageID != "" && entry.MessageID == item.MessageID
	default:
		return strings.TrimSpace(entry.Content) == strings.TrimSpace(item.Content)
	}
}

// claimKey builds the synthetic one-time consumption marker for a confirmed
// item. Items with a stable event id are keyed on it; the rest on a content
// prefix.
func claimKey(item *chatflow.Item) string {
	if item.MCPEventID != "" {
		return fmt.Sprintf("%d-%s-event-%s", item.TimestampUs, item.Type, item.MCPEventID)
	}
	content := item.Content
	if len(content) > 50 {
		content = content[:50]
	}
	return fmt.Sprintf("%d-%s-content-%s", item.TimestampUs, item.Type, content)
}

// streamKey derives the composite overlay key for a chunk event.
func streamKey(ev events.StreamChunk) string {
	if ev.StreamType == events.StreamSummarization {
		return ev.MCPEventID + "-summarization"
	}
	return ev.StageExecutionID + "-" + ev.StreamType
}

func streamItemType(streamType string) (chatflow.ItemType, bool) {
	switch streamType {
	case events.StreamThought:
		return chatflow.TypeThought, true
	case events.StreamFinalAnswer:
		return chatflow.TypeFinalAnswer, true
	case events.StreamForcedConclusion:
		return chatflow.TypeForcedConclusion, true
	case events.StreamNativeThinking:
		return chatflow.TypeNativeThinking, true
	case events.StreamIntermediateResponse:
		return chatflow.TypeIntermediateResponse, true
	case events.StreamSummarization:
		return chatflow.TypeSummarization, true
	}
	return "", false
}
