// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.bidscribe.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - EnvOverlay: BIDSCRIBE_* environment and .env overrides
//   - PromptStore: editable prompt templates
package file
