package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible
	// default or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswer builds the grounded answer prompt. The template expects
	// two %s placeholders: the numbered context blocks, then the question.
	PromptAnswer = "answer"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service uses its built-in default prompt.
	SetPromptStore(store PromptStore)
}

// DefaultAnswerPrompt is the built-in grounded answer template.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const DefaultAnswerPrompt = `You answer questions about investor-education and regulatory documents.
Use ONLY the numbered context blocks below. Do not use outside knowledge.
Cite the blocks you rely on by number, for example [1] or [2][3].
If the context does not contain the answer, say that you are not sure and explain what is missing.

Context:
%s

Question: %s

Answer:`
