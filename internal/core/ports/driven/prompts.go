package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptChunking asks for a semantic segmentation in the CHUNK line protocol.
	// The document text is appended between [START] and [END] markers.
	PromptChunking = "chunking"

	// PromptRelationships asks for a JSON array of subject/relationship/object triples.
	// The text to analyse is appended after the template.
	PromptRelationships = "relationships"

	// PromptChunkSummary asks for a one-sentence summary of a fallback chunk.
	// The template expects a single %s placeholder for the chunk text.
	PromptChunkSummary = "chunk_summary"
)
