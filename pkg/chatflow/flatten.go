package chatflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sessionflow/sessionflow/pkg/session"
)

// Ordering offsets, in microseconds. These are load-bearing: downstream
// consumers rely on absolute offsets of exactly 1 and 2 for same-timestamp
// tie-breaking, so they must not be replaced with a multi-key sort.
const (
	offsetAfterPrimary    = 1
	offsetNativeToolUsage = 2
)

// Flattener turns a nested session snapshot into a flat, timestamp-ordered
// chat transcript. It is a pure transformation: re-invoking it on the same
// snapshot yields a deep-equal result. The clock is only consulted for
// stages missing started_at_us.
type Flattener struct {
	now func() time.Time
}

// NewFlattener returns a Flattener using the wall clock for missing stage
// timestamps.
func NewFlattener() *Flattener {
	return &Flattener{now: time.Now}
}

// NewFlattenerWithClock returns a Flattener with an injected clock. Tests
// use this to keep flattening fully deterministic.
func NewFlattenerWithClock(now func() time.Time) *Flattener {
	return &Flattener{now: now}
}

// Flatten walks the session's stages in input order and emits the durable
// chat flow item list, stable-sorted by timestamp. This is the only global
// ordering step; all per-item timestamp arithmetic exists to produce the
// correct relative order under this sort.
func (f *Flattener) Flatten(s *session.Session) ([]Item, error) {
	if s == nil {
		return nil, fmt.Errorf("flatten: %w", session.ErrMalformedSession)
	}

	var items []Item
	for i := range s.Stages {
		items = append(items, f.flattenStage(&s.Stages[i])...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TimestampUs < items[j].TimestampUs
	})
	return items, nil
}

func (f *Flattener) flattenStage(st *session.Stage) []Item {
	startTs := st.StartedAtUs
	if startTs == 0 {
		startTs = f.now().UnixMicro()
	}

	meta := stageMeta{
		stageID:    st.StageID,
		stageName:  st.StageName,
		isParallel: st.IsParallel(),
		isChat:     st.IsChat(),
	}

	items := []Item{{
		Type:           TypeStageStart,
		TimestampUs:    startTs,
		StageID:        st.StageID,
		StageName:      st.StageName,
		ExecutionID:    st.ExecutionID,
		ExecutionAgent: st.Agent,
		Status:         st.Status,
		ErrorMessage:   st.ErrorMessage,
		IsParallelStage: meta.isParallel,
		IsChatStage:     meta.isChat,
	}}

	if cm := st.ChatUserMessage; cm != nil {
		// The floor at stage_start+1 both repairs a missing source
		// timestamp and keeps the user message from sorting before its
		// owning stage marker when upstream timestamps are skewed.
		ts := cm.CreatedAtUs
		if ts < startTs+offsetAfterPrimary {
			ts = startTs + offsetAfterPrimary
		}
		items = append(items, Item{
			Type:            TypeUserMessage,
			TimestampUs:     ts,
			StageID:         st.StageID,
			StageName:       st.StageName,
			ExecutionID:     st.ExecutionID,
			Content:         cm.Content,
			Author:          cm.Author,
			MessageID:       cm.MessageID,
			IsParallelStage: meta.isParallel,
			IsChatStage:     meta.isChat,
		})
	}

	for _, exec := range st.Executions() {
		items = append(items, f.flattenExecution(exec, meta)...)
	}
	return items
}

type stageMeta struct {
	stageID    string
	stageName  string
	isParallel bool
	isChat     bool
}

func (m stageMeta) apply(it *Item, exec session.Execution) {
	it.StageID = m.stageID
	it.StageName = m.stageName
	it.ExecutionID = exec.ExecutionID
	it.ExecutionAgent = exec.Agent
	it.IsParallelStage = m.isParallel
	it.IsChatStage = m.isChat
}

func (f *Flattener) flattenExecution(exec session.Execution, meta stageMeta) []Item {
	var items []Item

	interactions := make([]session.LLMInteraction, len(exec.LLMInteractions))
	copy(interactions, exec.LLMInteractions)
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].TimestampUs < interactions[j].TimestampUs
	})

	// Assistant message contents seen in the previous interaction. Scoped
	// to this execution and updated after every interaction regardless of
	// branch, so that echoed/inherited responses are not re-emitted.
	prevContents := make(map[string]struct{})

	for i := range interactions {
		interaction := &interactions[i]
		emitted, nextContents := f.flattenInteraction(interaction, exec, meta, prevContents)
		items = append(items, emitted...)
		prevContents = nextContents
	}

	for _, comm := range toolCallsSorted(exec.MCPCommunications) {
		items = append(items, toolCallItem(comm, exec, meta))
	}

	return items
}

// flattenInteraction emits the items for one interaction and returns the
// carried-forward assistant-content set for the next one.
func (f *Flattener) flattenInteraction(
	interaction *session.LLMInteraction,
	exec session.Execution,
	meta stageMeta,
	prevContents map[string]struct{},
) ([]Item, map[string]struct{}) {
	var items []Item

	emit := func(it Item) {
		meta.apply(&it, exec)
		it.LLMInteractionID = interaction.EventOrID()
		items = append(items, it)
	}

	lastContent := interaction.LastAssistantContent()
	ts := interaction.TimestampUs

	// The cursor advances past a native thinking item so any subsequent
	// same-interaction item sorts after it.
	cursor := ts
	if interaction.Details.ThinkingContent != "" {
		emit(Item{
			Type:        TypeNativeThinking,
			TimestampUs: ts,
			Content:     interaction.Details.ThinkingContent,
			DurationMs:  interaction.DurationMs,
		})
		cursor += offsetAfterPrimary
	}

	switch interaction.Details.InteractionType {
	case session.InteractionInvestigation:
		c := Classify(lastContent)
		if c.Thought != "" {
			emit(Item{Type: TypeThought, TimestampUs: ts, Content: c.Thought, DurationMs: interaction.DurationMs})
		} else if exec.UsesNativeThinking() && lastContent != "" {
			if _, inherited := prevContents[lastContent]; !inherited {
				emit(Item{Type: TypeIntermediateResponse, TimestampUs: cursor, Content: lastContent, DurationMs: interaction.DurationMs})
			}
		}

	case session.InteractionFinalAnalysis, session.InteractionForcedConclusion:
		conclusionType := TypeFinalAnswer
		if interaction.Details.InteractionType == session.InteractionForcedConclusion {
			conclusionType = TypeForcedConclusion
		}
		c := Classify(lastContent)
		if c.Thought != "" {
			emit(Item{Type: TypeThought, TimestampUs: ts, Content: c.Thought, DurationMs: interaction.DurationMs})
		}
		if c.FinalAnswer != "" {
			emit(Item{Type: conclusionType, TimestampUs: ts + offsetAfterPrimary, Content: c.FinalAnswer, DurationMs: interaction.DurationMs})
		}

	case session.InteractionSummarization:
		if strings.TrimSpace(lastContent) != "" {
			emit(Item{
				Type:        TypeSummarization,
				TimestampUs: ts,
				Content:     lastContent,
				MCPEventID:  interaction.Details.MCPEventID,
				DurationMs:  interaction.DurationMs,
			})
		}

	default:
		// Unrecognized interaction types are skipped, not rejected.
	}

	if interaction.Details.ResponseMetadata != nil {
		if usage := ExtractNativeTools(interaction.Details.ResponseMetadata, lastContent); usage != nil {
			emit(Item{
				Type:        TypeNativeToolUsage,
				TimestampUs: cursor + offsetNativeToolUsage,
				NativeTools: usage,
			})
		}
	}

	return items, interaction.AssistantContents()
}

func toolCallsSorted(comms []session.MCPCommunication) []session.MCPCommunication {
	var calls []session.MCPCommunication
	for _, c := range comms {
		if c.Details.CommunicationType == session.CommunicationToolCall {
			calls = append(calls, c)
		}
	}
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].TimestampUs < calls[j].TimestampUs
	})
	return calls
}

func toolCallItem(comm session.MCPCommunication, exec session.Execution, meta stageMeta) Item {
	toolName := comm.Details.ToolName
	if toolName == "" {
		toolName = "unknown"
	}
	args := comm.Details.ToolArguments
	if args == nil {
		args = map[string]any{}
	}
	success := comm.Details.Success == nil || *comm.Details.Success

	it := Item{
		Type:          TypeToolCall,
		TimestampUs:   comm.TimestampUs,
		ToolName:      toolName,
		ToolArguments: args,
		ToolResult:    comm.Details.ToolResult,
		ServerName:    comm.Details.ServerName,
		Success:       &success,
		ErrorMessage:  comm.Details.ErrorMessage,
		DurationMs:    comm.DurationMs,
		MCPEventID:    comm.EventOrID(),
	}
	meta.apply(&it, exec)
	return it
}
