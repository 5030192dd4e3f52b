package usecase

import (
	"fmt"
	"strings"

	"docqa-orchestrator/internal/domain"
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Query   string
	Locale  string
	Context AssembledContext
}

// PromptBuilder builds the chat messages sent to the generation model.
type PromptBuilder interface {
	Build(input PromptInput) ([]domain.Message, error)
}

// XMLPromptBuilder creates structured prompts that separate context,
// instructions, and query. Each context block carries the citation
// number the answer must reference.
type XMLPromptBuilder struct {
	additionalInstructions []string
}

// NewXMLPromptBuilder creates a prompt builder with optional extra instructions appended.
func NewXMLPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &XMLPromptBuilder{
		additionalInstructions: additionalInstructions,
	}
}

// Build renders the messages for the chat API.
func (b *XMLPromptBuilder) Build(input PromptInput) ([]domain.Message, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if len(input.Context.Blocks) == 0 {
		return nil, fmt.Errorf("at least one context block is required")
	}

	var sysSb strings.Builder
	sysSb.WriteString("<instructions>\n")
	sysSb.WriteString("  <locale>")
	sysSb.WriteString(escape(input.Locale))
	sysSb.WriteString("</locale>\n")

	instructions := []string{
		"You are an engineering assistant that answers questions based ONLY on the provided <context>.",
		"1. Answer the <query> using strictly the facts from the <context> documents.",
		"2. When sources conflict, prefer them in this order: past design intent, merchandise plan, product plan, regulation, then everything else.",
		"3. Every factual statement MUST end with the citation marker [n] of the context block it came from, e.g. [1].",
		"4. Use ONLY the citation numbers that appear in the <context>. Never invent a citation.",
		"5. Answer in the language given by <locale>.",
		"6. Do not include external knowledge. If the context does not cover part of the question, say so.",
	}
	for _, inst := range append(instructions, b.additionalInstructions...) {
		sysSb.WriteString("  <line>")
		sysSb.WriteString(escape(inst))
		sysSb.WriteString("</line>\n")
	}
	sysSb.WriteString("</instructions>\n")

	var userSb strings.Builder
	userSb.WriteString("<context>\n")
	for _, block := range input.Context.Blocks {
		userSb.WriteString("  <document>\n")
		userSb.WriteString("    <citation>")
		fmt.Fprintf(&userSb, "%d", block.Citation)
		userSb.WriteString("</citation>\n")
		userSb.WriteString("    <source>")
		userSb.WriteString(escape(block.Source))
		userSb.WriteString("</source>\n")
		if block.Heading != "" {
			userSb.WriteString("    <heading>")
			userSb.WriteString(escape(block.Heading))
			userSb.WriteString("</heading>\n")
		}
		userSb.WriteString("    <score>")
		fmt.Fprintf(&userSb, "%.2f", block.Score)
		userSb.WriteString("</score>\n")
		userSb.WriteString("    <text>")
		userSb.WriteString(escape(block.Text))
		userSb.WriteString("</text>\n")
		userSb.WriteString("  </document>\n")
	}
	userSb.WriteString("</context>\n\n")

	userSb.WriteString("<query>\n")
	userSb.WriteString(escape(input.Query))
	userSb.WriteString("\n</query>\n")

	return []domain.Message{
		{Role: "system", Content: sysSb.String()},
		{Role: "user", Content: userSb.String()},
	}, nil
}

func escape(value string) string {
	s := strings.TrimSpace(value)
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}
