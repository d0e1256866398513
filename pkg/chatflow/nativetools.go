package chatflow

import (
	"regexp"
	"strings"
)

// NativeToolsUsage reports built-in model tool activity detected on one
// interaction. A nil *NativeToolsUsage means no evidence was found; this is
// deliberately distinct from a usage with empty fields.
type NativeToolsUsage struct {
	Search        *SearchUsage        `json:"search,omitempty"`
	URLContext    *URLContextUsage    `json:"url_context,omitempty"`
	CodeExecution *CodeExecutionUsage `json:"code_execution,omitempty"`
}

// SearchUsage reports web search grounding.
type SearchUsage struct {
	Queries          []string `json:"queries"`
	QueryCount       int      `json:"query_count"`
	SearchEntryPoint any      `json:"search_entry_point,omitempty"`
}

// URLContextUsage reports URL fetch grounding.
type URLContextUsage struct {
	URLs     []URLReference `json:"urls"`
	URLCount int            `json:"url_count"`
}

// URLReference is one fetched URL. Title defaults to "" when missing.
type URLReference struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// CodeExecutionUsage reports code execution activity. CodeBlocks and
// OutputBlocks are nil when the respective kind produced no evidence.
type CodeExecutionUsage struct {
	Detected     bool          `json:"detected"`
	CodeBlocks   []CodeBlock   `json:"code_blocks,omitempty"`
	OutputBlocks []OutputBlock `json:"output_blocks,omitempty"`
	CodeCount    int           `json:"code_count"`
	OutputCount  int           `json:"output_count"`
}

// CodeBlock is one executed code snippet.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// OutputBlock is one execution result.
type OutputBlock struct {
	Outcome string `json:"outcome"`
	Output  string `json:"output"`
}

// Markdown fences are the fallback evidence source for code execution,
// consulted per kind only when structured parts yielded nothing of that
// kind. Tags are case-insensitive and tolerate trailing whitespace and
// CRLF line endings.
var (
	codeFenceRegex   = regexp.MustCompile("(?is)```python[ \t]*\r?\n(.*?)\r?\n?```")
	outputFenceRegex = regexp.MustCompile("(?is)```output[ \t]*\r?\n(.*?)\r?\n?```")
)

// ExtractNativeTools detects built-in tool usage from response metadata
// and/or response text. Returns nil when no tool category produced
// evidence.
func ExtractNativeTools(metadata map[string]any, content string) *NativeToolsUsage {
	usage := &NativeToolsUsage{
		Search:        extractSearch(metadata),
		CodeExecution: extractCodeExecution(metadata, content),
	}
	// Search queries always win over URL-context on the same grounding
	// block; the two are mutually exclusive classifications.
	if usage.Search == nil {
		usage.URLContext = extractURLContext(metadata)
	}

	if usage.Search == nil && usage.URLContext == nil && usage.CodeExecution == nil {
		return nil
	}
	return usage
}

func extractSearch(metadata map[string]any) *SearchUsage {
	grounding := asMap(metadata["grounding_metadata"])
	if grounding == nil {
		return nil
	}
	raw := asSlice(grounding["web_search_queries"])
	if len(raw) == 0 {
		return nil
	}
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if s, ok := q.(string); ok {
			queries = append(queries, s)
		}
	}
	if len(queries) == 0 {
		return nil
	}
	return &SearchUsage{
		Queries:          queries,
		QueryCount:       len(queries),
		SearchEntryPoint: grounding["search_entry_point"],
	}
}

func extractURLContext(metadata map[string]any) *URLContextUsage {
	grounding := asMap(metadata["grounding_metadata"])
	if grounding == nil {
		return nil
	}
	var urls []URLReference
	for _, c := range asSlice(grounding["grounding_chunks"]) {
		web := asMap(asMap(c)["web"])
		if web == nil {
			continue
		}
		uri, _ := web["uri"].(string)
		if uri == "" {
			continue
		}
		title, _ := web["title"].(string)
		urls = append(urls, URLReference{URI: uri, Title: title})
	}
	if len(urls) == 0 {
		return nil
	}
	return &URLContextUsage{URLs: urls, URLCount: len(urls)}
}

func extractCodeExecution(metadata map[string]any, content string) *CodeExecutionUsage {
	codeBlocks, outputBlocks := extractStructuredParts(metadata)

	// Markdown fallback applies per kind, only when structured parts
	// yielded zero blocks of that kind. Sources are never merged.
	if len(codeBlocks) == 0 {
		for _, m := range codeFenceRegex.FindAllStringSubmatch(content, -1) {
			codeBlocks = append(codeBlocks, CodeBlock{Language: "python", Code: m[1]})
		}
	}
	if len(outputBlocks) == 0 {
		for _, m := range outputFenceRegex.FindAllStringSubmatch(content, -1) {
			outputBlocks = append(outputBlocks, OutputBlock{Outcome: "ok", Output: m[1]})
		}
	}

	if len(codeBlocks) == 0 && len(outputBlocks) == 0 {
		return nil
	}
	return &CodeExecutionUsage{
		Detected:     true,
		CodeBlocks:   codeBlocks,
		OutputBlocks: outputBlocks,
		CodeCount:    len(codeBlocks),
		OutputCount:  len(outputBlocks),
	}
}

func extractStructuredParts(metadata map[string]any) ([]CodeBlock, []OutputBlock) {
	var codeBlocks []CodeBlock
	var outputBlocks []OutputBlock

	for _, p := range asSlice(metadata["parts"]) {
		part := asMap(p)
		if part == nil {
			continue
		}

		if raw, ok := firstOf(part, "executable_code", "executableCode"); ok {
			switch v := raw.(type) {
			case string:
				codeBlocks = append(codeBlocks, CodeBlock{Language: "python", Code: v})
			case map[string]any:
				code, _ := v["code"].(string)
				codeBlocks = append(codeBlocks, CodeBlock{
					Language: normalizeLanguage(v["language"]),
					Code:     code,
				})
			}
		}

		if raw, ok := firstOf(part, "code_execution_result", "codeExecutionResult"); ok {
			switch v := raw.(type) {
			case string:
				outputBlocks = append(outputBlocks, OutputBlock{Outcome: "unknown", Output: v})
			case map[string]any:
				output, _ := v["output"].(string)
				outputBlocks = append(outputBlocks, OutputBlock{
					Outcome: normalizeOutcome(v["outcome"]),
					Output:  output,
				})
			}
		}
	}

	return codeBlocks, outputBlocks
}

// normalizeLanguage maps the provider's language encodings (numeric enum or
// string) to a canonical name. Anything unrecognized defaults to python,
// the only language the execution sandbox runs.
func normalizeLanguage(v any) string {
	switch lang := v.(type) {
	case float64:
		if lang == 1 {
			return "python"
		}
	case int:
		if lang == 1 {
			return "python"
		}
	case string:
		if strings.EqualFold(lang, "python") {
			return "python"
		}
	}
	return "python"
}

// normalizeOutcome maps the provider's outcome encodings to ok/error,
// with unknown for anything unrecognized or absent.
func normalizeOutcome(v any) string {
	switch outcome := v.(type) {
	case float64:
		switch outcome {
		case 1:
			return "ok"
		case 2:
			return "error"
		}
	case int:
		switch outcome {
		case 1:
			return "ok"
		case 2:
			return "error"
		}
	case string:
		switch outcome {
		case "OUTCOME_OK", "ok":
			return "ok"
		case "OUTCOME_ERROR", "error":
			return "error"
		}
	}
	return "unknown"
}

func firstOf(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
