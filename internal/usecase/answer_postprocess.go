package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reasoningMarkupRe = regexp.MustCompile(`(?s)<(think|thinking|reasoning|scratchpad)>.*?</(think|thinking|reasoning|scratchpad)>`)
	citationMarkerRe  = regexp.MustCompile(`\[(\d+)\]`)
)

// AnswerPostProcessor cleans the raw generation output and restricts
// the reference list to citations the answer actually uses.
type AnswerPostProcessor struct{}

// NewAnswerPostProcessor creates a post-processor (currently stateless).
func NewAnswerPostProcessor() AnswerPostProcessor {
	return AnswerPostProcessor{}
}

// Process strips reasoning markup, collects the [n] markers present in
// the answer, and returns the cleaned text plus the citations used.
func (p AnswerPostProcessor) Process(raw string, citations []CitationEntry) (string, []CitationEntry) {
	text := reasoningMarkupRe.ReplaceAllString(raw, "")
	text = strings.TrimSpace(text)

	used := make(map[int]struct{})
	for _, match := range citationMarkerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		used[n] = struct{}{}
	}

	var kept []CitationEntry
	for _, cite := range citations {
		if _, ok := used[cite.Number]; ok {
			kept = append(kept, cite)
		}
	}
	return text, kept
}

// AppendReferences renders the used citations as a reference section
// under the answer. An empty citation list leaves the answer untouched.
func (p AnswerPostProcessor) AppendReferences(answer string, citations []CitationEntry, locale string) string {
	if len(citations) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n")
	b.WriteString(referencesHeading(locale))
	b.WriteString("\n")
	for _, cite := range citations {
		if cite.URL != "" {
			fmt.Fprintf(&b, "- [%d] %s (%s)\n", cite.Number, cite.DisplayName, cite.URL)
		} else {
			fmt.Fprintf(&b, "- [%d] %s\n", cite.Number, cite.DisplayName)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
