// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.docrag/config.toml
//   - PromptStore: user-editable prompt templates under ~/.docrag/prompts
package file
