// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentSource: Lists pages and fetches them as markdown
//   - StoreAdapter: One per persistence backend (graph, vector)
//   - LLMService: Chunk segmentation, summaries and relationship extraction
//   - Tokenizer: Token counting for chunk bounds and the window fallback
//   - PromptStore: User-editable prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, chunks are stored without vectors and
//     vector-only stores are rejected at configuration time.
//   - DocumentReplacer: Stores offering a transaction replace a document atomically.
//   - GraphExporter: Stores that can enumerate their relationship graph.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
