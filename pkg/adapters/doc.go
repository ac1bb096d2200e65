// Package adapters provides provider-agnostic LLM adapter interfaces and implementations.
//
// Subpackages:
//   - openai
//   - anthropic
//   - gemini
//   - xai
package adapters
