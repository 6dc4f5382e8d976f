// Package openai implements the ai interfaces against any OpenAI-compatible
// API: OpenAI itself, Ollama, LocalAI, vLLM, and similar servers.
//
// Embeddings go through langchaingo's embeddings wrapper and come back
// normalized to unit length. Analysis uses JSON-mode chat completion with
// retries around malformed responses, since small local models frequently
// emit fenced or slightly broken JSON.
package openai
