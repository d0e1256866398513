package reconcile_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/events"
	"github.com/sessionflow/sessionflow/pkg/reconcile"
)

var _ = Describe("Reconciler", func() {
	var r *reconcile.Reconciler

	fixedNow := func() time.Time { return time.UnixMicro(5_000_000) }

	BeforeEach(func() {
		r = reconcile.New("sess-1", reconcile.WithClock(fixedNow))
	})

	chunk := func(streamType, content string, complete bool) events.StreamChunk {
		return events.StreamChunk{
			Type:             events.EventStreamChunk,
			StreamType:       streamType,
			Chunk:            content,
			IsComplete:       complete,
			StageExecutionID: "exec-1",
		}
	}

	Describe("HandleStreamChunk", func() {
		It("creates an entry on the first partial chunk", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "che", false))
			Expect(r.Pending()).To(Equal(1))

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].Type).To(Equal(chatflow.TypeThought))
			Expect(live[0].Content).To(Equal("che"))
			Expect(live[0].WaitingForDB).To(BeFalse())
		})

		It("overwrites content with each chunk instead of concatenating", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "che", false))
			r.HandleStreamChunk(chunk(events.StreamThought, "check pods", false))

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].Content).To(Equal("check pods"))
		})

		It("marks the entry as awaiting confirmation on the complete chunk", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "che", false))
			r.HandleStreamChunk(chunk(events.StreamThought, "check pods", true))

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].WaitingForDB).To(BeTrue())
		})

		It("seeds a complete entry directly when no partial preceded it", func() {
			r.HandleStreamChunk(chunk(events.StreamFinalAnswer, "done", true))

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].WaitingForDB).To(BeTrue())
		})

		It("keys summarization streams by mcp event id", func() {
			ev := chunk(events.StreamSummarization, "summary text", true)
			ev.MCPEventID = "mcp-1"
			r.HandleStreamChunk(ev)

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].Key).To(Equal("mcp-1-summarization"))
			Expect(live[0].MCPEventID).To(Equal("mcp-1"))
		})

		It("ignores unknown stream types", func() {
			r.HandleStreamChunk(chunk("telemetry", "x", true))
			Expect(r.Pending()).To(BeZero())
		})

		It("keeps independent streams under separate keys", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "thinking", false))
			r.HandleStreamChunk(chunk(events.StreamFinalAnswer, "answering", false))
			Expect(r.Pending()).To(Equal(2))
		})
	})

	Describe("HandleToolCallStarted", func() {
		It("enters directly as awaiting confirmation", func() {
			r.HandleToolCallStarted(events.ToolCallStarted{
				CommunicationID: "comm-1",
				ToolName:        "get_pods",
				ToolArguments:   map[string]any{"namespace": "default"},
			})

			live := r.Live(nil)
			Expect(live).To(HaveLen(1))
			Expect(live[0].Type).To(Equal(chatflow.TypeToolCall))
			Expect(live[0].WaitingForDB).To(BeTrue())
			Expect(live[0].ToolName).To(Equal("get_pods"))
		})

		It("ignores events without a communication id", func() {
			r.HandleToolCallStarted(events.ToolCallStarted{ToolName: "get_pods"})
			Expect(r.Pending()).To(BeZero())
		})
	})

	Describe("MatchConfirmed", func() {
		It("retires a tool call entry by mcp event id", func() {
			r.HandleToolCallStarted(events.ToolCallStarted{CommunicationID: "comm-1", ToolName: "get_pods"})

			r.MatchConfirmed([]chatflow.Item{
				{Type: chatflow.TypeToolCall, TimestampUs: 1_000_000, MCPEventID: "comm-1"},
			})
			Expect(r.Pending()).To(BeZero())
		})

		It("retires a content-matched entry with trimmed comparison", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "check pods  ", true))

			r.MatchConfirmed([]chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1_000_000, Content: "check pods"},
			})
			Expect(r.Pending()).To(BeZero())
		})

		It("does not retire entries still streaming", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "check pods", false))

			r.MatchConfirmed([]chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1_000_000, Content: "check pods"},
			})
			Expect(r.Pending()).To(Equal(1))
		})

		It("claims each confirmed item at most once", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "dup", true))
			ev := chunk(events.StreamThought, "dup", true)
			ev.StageExecutionID = "exec-2"
			r.HandleStreamChunk(ev)

			// Only one confirmed item exists; only one entry may retire.
			confirmed := []chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1_000_000, Content: "dup"},
			}
			r.MatchConfirmed(confirmed)
			Expect(r.Pending()).To(Equal(1))
		})

		It("retires exactly once against duplicate confirmed items", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "dup", true))

			confirmed := []chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1_000_000, Content: "dup"},
				{Type: chatflow.TypeThought, TimestampUs: 1_000_005, Content: "dup"},
			}
			r.MatchConfirmed(confirmed)
			Expect(r.Pending()).To(BeZero())

			// A later same-shape stream can still pair with the second,
			// still-unclaimed duplicate.
			r.HandleStreamChunk(chunk(events.StreamThought, "dup", true))
			r.MatchConfirmed(confirmed)
			Expect(r.Pending()).To(BeZero())
		})

		It("pairs entries with confirmed items in FIFO order", func() {
			r.HandleToolCallStarted(events.ToolCallStarted{CommunicationID: "comm-1"})
			r.HandleToolCallStarted(events.ToolCallStarted{CommunicationID: "comm-2"})

			r.MatchConfirmed([]chatflow.Item{
				{Type: chatflow.TypeToolCall, TimestampUs: 1_000_000, MCPEventID: "comm-1"},
			})
			Expect(r.Pending()).To(Equal(1))

			live := r.Live(nil)
			Expect(live[0].MCPEventID).To(Equal("comm-2"))
		})

		It("only scans the most recent twenty confirmed items", func() {
			r.HandleToolCallStarted(events.ToolCallStarted{CommunicationID: "comm-old"})

			confirmed := []chatflow.Item{
				{Type: chatflow.TypeToolCall, TimestampUs: 1, MCPEventID: "comm-old"},
			}
			for i := 0; i < 20; i++ {
				confirmed = append(confirmed, chatflow.Item{
					Type:        chatflow.TypeThought,
					TimestampUs: int64(100 + i),
					Content:     fmt.Sprintf("filler %d", i),
				})
			}

			r.MatchConfirmed(confirmed)
			Expect(r.Pending()).To(Equal(1))
		})

		It("matches user messages by message id", func() {
			r.HandleChatUserMessage(events.StageStatus{
				ChatUserMessageID:   "msg-1",
				ChatUserMessageText: "why?",
			})

			r.MatchConfirmed([]chatflow.Item{
				{Type: chatflow.TypeUserMessage, TimestampUs: 1_000_000, MessageID: "msg-1", Content: "why?"},
			})
			Expect(r.Pending()).To(BeZero())
		})
	})

	Describe("Live display filtering", func() {
		It("suppresses entries duplicated in the confirmed tail", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "visible soon", false))

			confirmed := []chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1, Content: "visible soon"},
			}
			Expect(r.Live(confirmed)).To(BeEmpty())
			// The entry itself is still live; only display is filtered.
			Expect(r.Pending()).To(Equal(1))
		})

		It("does not suppress against items older than the tail", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "old dup", false))

			confirmed := []chatflow.Item{
				{Type: chatflow.TypeThought, TimestampUs: 1, Content: "old dup"},
				{Type: chatflow.TypeThought, TimestampUs: 2, Content: "a"},
				{Type: chatflow.TypeThought, TimestampUs: 3, Content: "b"},
				{Type: chatflow.TypeThought, TimestampUs: 4, Content: "c"},
			}
			Expect(r.Live(confirmed)).To(HaveLen(1))
		})

		It("returns entries in creation order", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "first", false))
			r.HandleStreamChunk(chunk(events.StreamFinalAnswer, "second", false))

			live := r.Live(nil)
			Expect(live).To(HaveLen(2))
			Expect(live[0].Content).To(Equal("first"))
			Expect(live[1].Content).To(Equal("second"))
		})
	})

	Describe("lifecycle", func() {
		It("clears overlay and claims on session switch", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "x", true))
			r.Reset("sess-2")
			Expect(r.Pending()).To(BeZero())
			Expect(r.SessionID()).To(Equal("sess-2"))
		})

		It("keeps state when reset to the same session", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "x", true))
			r.Reset("sess-1")
			Expect(r.Pending()).To(Equal(1))
		})

		It("drops overlay state on Clear", func() {
			r.HandleStreamChunk(chunk(events.StreamThought, "x", false))
			r.HandleToolCallStarted(events.ToolCallStarted{CommunicationID: "comm-1"})
			r.Clear()
			Expect(r.Pending()).To(BeZero())
		})
	})
})
