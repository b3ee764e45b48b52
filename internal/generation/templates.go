package generation

import "strings"

// QuestionType selects the system-prompt template controlling response
// structure.
type QuestionType string

const (
	QuestionSummary    QuestionType = "summary"
	QuestionComparison QuestionType = "comparison"
	QuestionHowTo      QuestionType = "how_to"
	QuestionKeyPoints  QuestionType = "key_points"
	QuestionGeneral    QuestionType = "general"
)

// Classify routes a query to a question type by keyword heuristics. The
// heuristic is deliberately coarse; callers can pass an explicit type to
// bypass it.
func Classify(query string) QuestionType {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "key point", "main point", "bullet", "takeaway"):
		return QuestionKeyPoints
	case containsAny(q, "summar", "overview", "tl;dr"):
		return QuestionSummary
	case containsAny(q, "compare", "comparison", "difference", "differ", " vs ", "versus"):
		return QuestionComparison
	case containsAny(q, "how do", "how to", "how can", "steps", "procedure", "instructions"):
		return QuestionHowTo
	default:
		return QuestionGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// systemPrompt returns the template for a question type.
func systemPrompt(qt QuestionType) string {
	switch qt {
	case QuestionSummary:
		return "You are a documentation assistant. Produce a structured summary of the provided context: " +
			"start with a one-sentence overview, then cover the main topics in short paragraphs. " +
			"Only use information from the context. If the context does not cover the question, say so."
	case QuestionComparison:
		return "You are a documentation assistant. Give a balanced comparison of the items the user asks about, " +
			"treating each side with equal depth. Organize by aspect, and note where the provided context " +
			"is silent. Only use information from the context."
	case QuestionHowTo:
		return "You are a documentation assistant. Answer with numbered step-by-step instructions drawn from " +
			"the provided context. Mention prerequisites first. If a step is not covered by the context, " +
			"say so rather than inventing one."
	case QuestionKeyPoints:
		return "You are a documentation assistant. Extract the key points from the provided context as a " +
			"bulleted list, one point per line starting with '- '. No prose before or after the list."
	default:
		return "You are a documentation assistant. Answer the question using only the provided context. " +
			"Cite the source labels you relied on. If the context is insufficient, say so."
	}
}
