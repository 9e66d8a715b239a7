// Package llm provides quiz generators backed by LLM providers.
//
// The factory creates generators based on provider configuration.
// Currently supports:
//   - Anthropic Claude
package llm
