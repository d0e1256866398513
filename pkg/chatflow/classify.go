package chatflow

import (
	"regexp"
	"strings"
)

// Classified is the structured form of one raw assistant message. Either
// segment may be absent; both absent means the message produced no chat
// item of this kind (the caller still checks for native-tool usage).
type Classified struct {
	Thought     string
	FinalAnswer string
}

// Anchors are case-sensitive and applied in document order. A thought runs
// until the next recognized marker or end of text; a final answer runs to
// end of text.
var (
	thoughtRegex     = regexp.MustCompile(`(?s)Thought:\s*(.*?)\s*(?:Action:|Final Answer:|$)`)
	finalAnswerRegex = regexp.MustCompile(`(?s)Final Answer:\s*(.*)$`)
)

// Classify extracts the thought and final-answer segments from a raw
// assistant message. Whitespace-only segments are treated as absent.
func Classify(raw string) Classified {
	var c Classified

	if m := thoughtRegex.FindStringSubmatch(raw); len(m) > 1 {
		c.Thought = strings.TrimSpace(m[1])
	}
	if m := finalAnswerRegex.FindStringSubmatch(raw); len(m) > 1 {
		c.FinalAnswer = strings.TrimSpace(m[1])
	}

	return c
}

// HasAny reports whether classification produced at least one segment.
func (c Classified) HasAny() bool {
	return c.Thought != "" || c.FinalAnswer != ""
}
