package llm

import (
	"github.com/valyala/bytebufferpool"
)

// Turn is one prior exchange included as conversation context.
type Turn struct {
	UserMessage string
	BotResponse string
}

// PromptInput carries everything embedded into the generation prompt.
type PromptInput struct {
	// Question is the user's message.
	Question string
	// Context is the retrieved catalog answer, possibly empty.
	Context string
	// History holds prior turns, oldest first.
	History []Turn
}

// BuildPrompt assembles the grounded generation prompt: retrieved
// catalog context, the recent conversation window in chronological
// order, the question, and instructions pinning language and tone.
// Prompts are built per request, so the buffer comes from a pool.
func BuildPrompt(in PromptInput) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("Tu es un assistant support client serviable et professionnel.\n")

	if in.Context != "" {
		buf.WriteString("\nContexte issu de la base de connaissances :\n\"")
		buf.WriteString(in.Context)
		buf.WriteString("\"\n")
	}

	if len(in.History) > 0 {
		buf.WriteString("\nHistorique de la conversation :\n")
		for _, turn := range in.History {
			buf.WriteString("Utilisateur : ")
			buf.WriteString(turn.UserMessage)
			buf.WriteString("\nAssistant : ")
			buf.WriteString(turn.BotResponse)
			buf.WriteString("\n")
		}
	}

	buf.WriteString("\nQuestion de l'utilisateur :\n\"")
	buf.WriteString(in.Question)
	buf.WriteString("\"\n")

	buf.WriteString("\nInstructions :\n")
	if in.Context != "" {
		buf.WriteString("- Si le contexte répond à la question, reformule-le poliment.\n")
		buf.WriteString("- Si le contexte est vide ou non pertinent, réponds avec tes connaissances générales en restant bref.\n")
	} else {
		buf.WriteString("- Réponds de manière utile et précise à la question.\n")
		buf.WriteString("- Si tu ne connais pas la réponse, propose de contacter le support.\n")
	}
	buf.WriteString("- Sois concis mais complet (2-3 phrases).\n")
	buf.WriteString("- Reste poli et professionnel.\n")
	buf.WriteString("- Réponds en français.\n")

	return buf.String()
}
