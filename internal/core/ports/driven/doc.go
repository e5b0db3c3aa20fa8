// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChatProvider: Streams generated text (OpenAI, Anthropic, Ollama, Gemini)
//   - ConfigStore: Application configuration
//   - PromptStore: User-editable prompt templates
//
// # Knowledge Interfaces
//
// These are only needed when the knowledge store is enabled:
//
//   - EmbeddingService: Generates vector embeddings from summaries and queries
//   - DocumentIndex: Stores knowledge rows and runs filtered vector search
//   - GroupStore: Group membership (back-references to document IDs)
//   - Normaliser, NormaliserRegistry: Split uploaded files into records
//   - PostProcessor: Chunk and truncate records before they are embedded
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
