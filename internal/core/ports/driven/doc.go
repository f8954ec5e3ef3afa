// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser / NormaliserRegistry: Extract text from source files
//   - PostProcessorPipeline: Split extracted text into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Durable record set with similarity search
//   - PageStore: Page-level persistence behind the VectorStore
//   - FileWatcher: Reports files appearing in the watched folder
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - LLMService: Text generation. Without it, questions degrade to the
//     apology answer.
//   - PromptStore: User-customisable prompt templates.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
