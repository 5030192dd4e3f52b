package usecase

import (
	"fmt"
	"strings"

	"docqa-orchestrator/internal/domain"
)

// DraftPromptInput defines the input for building document draft prompts.
type DraftPromptInput struct {
	Topic   string
	Locale  string
	Context AssembledContext
}

// DraftPromptBuilder defines the interface for building draft prompts.
type DraftPromptBuilder interface {
	Build(input DraftPromptInput) ([]domain.Message, error)
}

type markdownDraftPromptBuilder struct{}

// NewDraftPromptBuilder creates a prompt builder for sectioned Markdown
// document drafts.
func NewDraftPromptBuilder() DraftPromptBuilder {
	return &markdownDraftPromptBuilder{}
}

// Build constructs the prompt messages for document draft generation.
func (b *markdownDraftPromptBuilder) Build(input DraftPromptInput) ([]domain.Message, error) {
	if strings.TrimSpace(input.Topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if len(input.Context.Blocks) == 0 {
		return nil, fmt.Errorf("no context provided")
	}

	var sysSb strings.Builder
	sysSb.WriteString("You are an engineering writer producing internal design documents.\n\n")

	sysSb.WriteString("### Task\n")
	sysSb.WriteString("Draft a structured document about the given topic using ONLY the provided context.\n\n")

	sysSb.WriteString("### Instructions\n")
	sysSb.WriteString("1. The document MUST be Markdown with exactly these sections:\n")
	sysSb.WriteString("   ## 概要 (Overview)\n")
	sysSb.WriteString("   ## 重要ポイント (Key Points)\n")
	sysSb.WriteString("   ## リスク・留意点 (Risks)\n")
	sysSb.WriteString("2. Every factual statement MUST end with the citation marker [n] of the context block it came from.\n")
	sysSb.WriteString("3. Use ONLY citation numbers present in the context. Never invent one.\n")
	sysSb.WriteString("4. When sources conflict, prefer past design intent, then merchandise plan, product plan, regulation.\n")
	sysSb.WriteString(fmt.Sprintf("5. Write in the language: %s.\n", input.Locale))
	sysSb.WriteString("6. Do not add facts that are not in the context.\n")

	var userSb strings.Builder
	userSb.WriteString("### Context\n")
	for _, block := range input.Context.Blocks {
		userSb.WriteString(fmt.Sprintf("[%d] %s", block.Citation, block.Source))
		if block.Heading != "" {
			userSb.WriteString(" / " + block.Heading)
		}
		userSb.WriteString("\n")
		userSb.WriteString(block.Text)
		userSb.WriteString("\n\n")
	}

	userSb.WriteString("### Topic\n")
	userSb.WriteString(input.Topic)

	return []domain.Message{
		{Role: "system", Content: sysSb.String()},
		{Role: "user", Content: userSb.String()},
	}, nil
}
