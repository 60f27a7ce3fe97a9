package llm

import (
	"strings"

	"github.com/BerylCAtieno/document-chat-api/internal/models"
)

const systemInstructions = `You are an assistant that answers questions about a document the user uploaded.
Answer using the document content when it is provided. If the answer is not in the document, say so plainly.
Keep answers concise.`

// PromptInput is everything that goes into one chat prompt.
type PromptInput struct {
	Content  string
	History  []models.ChatRecord
	Question string
	// OnlyText leaves the document content out of the prompt.
	OnlyText bool
	// MaxContentChars truncates Content when positive.
	MaxContentChars int
}

// BuildPrompt lays out the instructions, the document, earlier turns as
// "User:/Assistant:" lines and the new question, ending with an open
// "Assistant:" turn.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString(systemInstructions)
	b.WriteString("\n\n")

	if !in.OnlyText && in.Content != "" {
		b.WriteString("Document content:\n")
		b.WriteString(truncate(in.Content, in.MaxContentChars))
		b.WriteString("\n\n")
	}

	for _, turn := range in.History {
		b.WriteString("User: ")
		b.WriteString(turn.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Answer)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(in.Question)
	b.WriteString("\nAssistant:")

	return b.String()
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
