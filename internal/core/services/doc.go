// Package services implements the driving port interfaces.
//
// IngestionService moves files through extraction, chunking, embedding
// and persistence. QueryService turns a question into a grounded answer.
// Manager ties both to the vector store and the folder watcher and is
// what the CLI, HTTP, MCP and TUI adapters drive.
//
// Services depend only on domain types and driven ports.
package services
