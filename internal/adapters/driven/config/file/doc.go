// Package file provides file-based configuration adapters.
//
// Adapters:
//   - Load: TOML or YAML configuration with ${VAR} environment substitution
//   - PromptStore: user-editable prompt templates with built-in defaults
package file
