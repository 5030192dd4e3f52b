package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MinChunkRunes is the minimum chunk length. Shorter sections are
	// merged with their neighbors.
	MinChunkRunes = 80
	// MaxChunkRunes is the maximum chunk length. Longer sections are
	// split at sentence boundaries.
	MaxChunkRunes = 1000
)

// MarkdownChunker splits a markdown document into retrieval fragments.
// Sections are bounded by headings; each fragment carries the nearest
// heading above it as metadata.
type MarkdownChunker struct{}

// NewMarkdownChunker creates a chunker instance.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{}
}

// Chunk splits body into fragments attributed to source. The document
// type is classified once from the file name and body and stamped on
// every fragment.
func (c *MarkdownChunker) Chunk(source, body string) ([]Fragment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("document body is empty")
	}

	docType := ClassifyDocType(source, body)
	sections := splitByHeading(normalizeNewlines(body))

	var fragments []Fragment
	ordinal := 0
	for _, sec := range sections {
		paragraphs := nonEmptyParagraphs(sec.body)
		merged := mergeShortParagraphs(paragraphs)
		pieces := splitLongParagraphs(merged)

		for _, piece := range pieces {
			fragments = append(fragments, Fragment{
				ID:   fmt.Sprintf("%s#%d", source, ordinal),
				Text: piece,
				Metadata: FragmentMetadata{
					Source:  source,
					DocType: docType,
					Heading: sec.heading,
				},
			})
			ordinal++
		}
	}

	if len(fragments) == 0 {
		return nil, fmt.Errorf("document produced no fragments")
	}
	return fragments, nil
}

type section struct {
	heading string
	body    string
}

// splitByHeading cuts the document at markdown headings. Text before
// the first heading forms a section with an empty heading.
func splitByHeading(body string) []section {
	var sections []section
	current := section{}
	var sb strings.Builder

	flush := func() {
		current.body = sb.String()
		if strings.TrimSpace(current.body) != "" || current.heading != "" {
			sections = append(sections, current)
		}
		sb.Reset()
	}

	for _, line := range strings.Split(body, "\n") {
		if heading, ok := parseHeading(line); ok {
			flush()
			current = section{heading: heading}
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	flush()
	return sections
}

func parseHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return "", false
	}
	return strings.TrimSpace(trimmed[level:]), true
}

func normalizeNewlines(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\r", "\n")
}

func nonEmptyParagraphs(body string) []string {
	var paragraphs []string
	for _, part := range strings.Split(body, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// mergeShortParagraphs joins consecutive paragraphs until each piece
// reaches MinChunkRunes. A trailing short piece is appended to the
// previous one.
func mergeShortParagraphs(paragraphs []string) []string {
	if len(paragraphs) == 0 {
		return paragraphs
	}

	var merged []string
	var acc string
	for _, para := range paragraphs {
		if acc == "" {
			acc = para
		} else {
			acc = acc + "\n\n" + para
		}
		if utf8.RuneCountInString(acc) >= MinChunkRunes {
			merged = append(merged, acc)
			acc = ""
		}
	}
	if acc != "" {
		if len(merged) > 0 && utf8.RuneCountInString(acc) < MinChunkRunes {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n\n" + acc
		} else {
			merged = append(merged, acc)
		}
	}
	return merged
}

// splitLongParagraphs cuts pieces longer than MaxChunkRunes at sentence
// boundaries.
func splitLongParagraphs(paragraphs []string) []string {
	var result []string
	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= MaxChunkRunes {
			result = append(result, para)
			continue
		}

		var chunk string
		for _, sentence := range splitIntoSentences(para) {
			chunkLen := utf8.RuneCountInString(chunk)
			sentenceLen := utf8.RuneCountInString(sentence)
			if chunkLen > 0 && chunkLen+1+sentenceLen > MaxChunkRunes {
				result = append(result, chunk)
				chunk = sentence
				continue
			}
			if chunk != "" {
				chunk += " "
			}
			chunk += sentence
		}
		if chunk != "" {
			result = append(result, chunk)
		}
	}
	return result
}

// splitIntoSentences splits at sentence-ending punctuation, covering
// both Latin terminators and the Japanese full stop.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		switch runes[i] {
		case '.', '!', '?':
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
					sentences = append(sentences, trimmed)
				}
				current.Reset()
			}
		case '。', '！', '？':
			if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
				sentences = append(sentences, trimmed)
			}
			current.Reset()
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	return sentences
}

// docTypeSignals maps keyword markers in the file name or body to a
// document type. First hit wins, checked in vocabulary priority order.
var docTypeSignals = []struct {
	docType  string
	keywords []string
}{
	{DocTypeDesignIntent, []string{"design_intent", "設計意図", "設計ノート"}},
	{DocTypeMerchandisePlan, []string{"merchandise", "商品企画", "商品計画"}},
	{DocTypeProductPlan, []string{"product_plan", "製品計画", "開発計画"}},
	{DocTypeRegulation, []string{"regulation", "法規", "規制", "基準", "ncap"}},
	{DocTypeCurrentBOM, []string{"bom", "部品表", "部品構成"}},
	{DocTypeReflexRules, []string{"reflex", "設計ルール", "反射"}},
	{DocTypeTechnicalPaper, []string{"technical_paper", "論文", "技術資料"}},
	{DocTypeCompetitorBenchmark, []string{"competitor", "benchmark", "競合", "ベンチマーク"}},
}

// ClassifyDocType assigns a document type from keyword signals in the
// file name, falling back to the first 500 runes of the body, then to
// unknown.
func ClassifyDocType(source, body string) string {
	name := strings.ToLower(source)
	for _, sig := range docTypeSignals {
		for _, kw := range sig.keywords {
			if strings.Contains(name, kw) {
				return sig.docType
			}
		}
	}

	head := strings.ToLower(body)
	if runes := []rune(head); len(runes) > 500 {
		head = string(runes[:500])
	}
	for _, sig := range docTypeSignals {
		for _, kw := range sig.keywords {
			if strings.Contains(head, kw) {
				return sig.docType
			}
		}
	}
	return DocTypeUnknown
}
