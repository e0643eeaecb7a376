package service

import "strings"

const (
	// NoContextPlaceholder replaces the context when retrieval finds nothing relevant.
	NoContextPlaceholder = "No context provided."
	// ContextDelimiter separates retrieved chunks inside the prompt.
	ContextDelimiter = "\n\n---\n\n"
)

const promptTemplate = `
Use the following context to help answer the question. If the context is not relevant or does not contain the answer, answer the question using your own knowledge.

Context:
{context}

---

Question: {question}
`

// BuildPrompt fills the fixed answer template.
func BuildPrompt(context, question string) string {
	r := strings.NewReplacer("{context}", context, "{question}", question)
	return r.Replace(promptTemplate)
}
