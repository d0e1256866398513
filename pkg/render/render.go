package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/sessionflow/sessionflow/pkg/chatflow"
	"github.com/sessionflow/sessionflow/pkg/reconcile"
)

var (
	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	thoughtStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	answerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	forcedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Italic(true)

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// Renderer writes a flattened transcript (and optionally its live overlay)
// as styled terminal text. Presentation only; carries no ordering or
// matching logic.
type Renderer struct {
	plain       bool
	syntaxTheme string
}

// NewRenderer creates a renderer. plain disables colors and syntax
// highlighting.
func NewRenderer(plain bool, syntaxTheme string) *Renderer {
	if syntaxTheme == "" {
		syntaxTheme = "monokai"
	}
	return &Renderer{plain: plain, syntaxTheme: syntaxTheme}
}

// Transcript renders the durable items followed by the live overlay
// entries.
func (r *Renderer) Transcript(items []chatflow.Item, live []reconcile.Entry) string {
	var b strings.Builder
	for i := range items {
		r.writeItem(&b, &items[i], false)
	}
	for i := range live {
		item := live[i].Item()
		r.writeItem(&b, &item, true)
	}
	return b.String()
}

func (r *Renderer) writeItem(b *strings.Builder, item *chatflow.Item, streaming bool) {
	ts := time.UnixMicro(item.TimestampUs).UTC().Format("15:04:05.000000")
	label := r.label(item, streaming)

	b.WriteString(fmt.Sprintf("%s  %s\n", ts, label))

	switch item.Type {
	case chatflow.TypeStageStart:
		if item.ErrorMessage != "" {
			b.WriteString(r.indent(r.style(errorStyle, item.ErrorMessage)))
		}
	case chatflow.TypeToolCall:
		b.WriteString(r.indent(r.toolCallBody(item)))
	case chatflow.TypeNativeToolUsage:
		b.WriteString(r.indent(r.nativeToolsBody(item.NativeTools)))
	default:
		if item.Content != "" {
			b.WriteString(r.indent(item.Content))
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) label(item *chatflow.Item, streaming bool) string {
	var label string
	switch item.Type {
	case chatflow.TypeStageStart:
		label = r.style(stageStyle, fmt.Sprintf("── stage: %s (%s) ──", item.StageName, item.Status))
	case chatflow.TypeUserMessage:
		who := item.Author
		if who == "" {
			who = "user"
		}
		label = r.style(userStyle, who+":")
	case chatflow.TypeThought:
		label = r.style(thoughtStyle, "thought:")
	case chatflow.TypeNativeThinking:
		label = r.style(thinkingStyle, "thinking:")
	case chatflow.TypeIntermediateResponse:
		label = r.style(thoughtStyle, "response:")
	case chatflow.TypeToolCall:
		status := "ok"
		if !item.Succeeded() {
			status = "failed"
		}
		label = r.style(toolStyle, fmt.Sprintf("tool %s [%s]:", item.ToolName, status))
	case chatflow.TypeSummarization:
		label = r.style(toolStyle, "summary:")
	case chatflow.TypeFinalAnswer:
		label = r.style(answerStyle, "final answer:")
	case chatflow.TypeForcedConclusion:
		label = r.style(forcedStyle, "forced conclusion:")
	case chatflow.TypeNativeToolUsage:
		label = r.style(toolStyle, "native tools:")
	default:
		label = string(item.Type) + ":"
	}
	if streaming {
		label += " " + r.style(liveStyle, "(live)")
	}
	return label
}

func (r *Renderer) toolCallBody(item *chatflow.Item) string {
	var b strings.Builder
	if len(item.ToolArguments) > 0 {
		if args, err := json.Marshal(item.ToolArguments); err == nil {
			b.WriteString("args: " + string(args) + "\n")
		}
	}
	if item.ErrorMessage != "" {
		b.WriteString(r.style(errorStyle, "error: "+item.ErrorMessage) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r *Renderer) nativeToolsBody(usage *chatflow.NativeToolsUsage) string {
	if usage == nil {
		return ""
	}
	var b strings.Builder
	if usage.Search != nil {
		b.WriteString(fmt.Sprintf("web search (%d): %s\n",
			usage.Search.QueryCount, strings.Join(usage.Search.Queries, "; ")))
	}
	if usage.URLContext != nil {
		uris := make([]string, 0, len(usage.URLContext.URLs))
		for _, u := range usage.URLContext.URLs {
			uris = append(uris, u.URI)
		}
		b.WriteString(fmt.Sprintf("url context (%d): %s\n",
			usage.URLContext.URLCount, strings.Join(uris, "; ")))
	}
	if usage.CodeExecution != nil {
		for _, block := range usage.CodeExecution.CodeBlocks {
			b.WriteString(r.highlight(block.Code, block.Language) + "\n")
		}
		for _, block := range usage.CodeExecution.OutputBlocks {
			b.WriteString(fmt.Sprintf("[%s] %s\n", block.Outcome, block.Output))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// highlight runs chroma over an extracted code block, falling back to the
// raw text when highlighting fails or plain mode is on.
func (r *Renderer) highlight(code, language string) string {
	if r.plain {
		return code
	}
	var b strings.Builder
	if err := quick.Highlight(&b, code, language, "terminal256", r.syntaxTheme); err != nil {
		return code
	}
	return b.String()
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) indent(text string) string {
	if text == "" {
		return ""
	}
	if r.plain {
		var b strings.Builder
		for _, line := range strings.Split(text, "\n") {
			b.WriteString("  " + line + "\n")
		}
		return strings.TrimSuffix(b.String(), "\n") + "\n"
	}
	return contentStyle.Render(text) + "\n"
}
