// Package llm talks to OpenAI-compatible chat completion APIs.
//
// Client is a minimal HTTP client for /chat/completions endpoints.
// Extractor prompts the model for structured rights data as JSON and maps
// the response into the domain types; StoryRewriter optionally rewrites
// generated user stories. Both tolerate code-fenced and loosely shaped
// model output.
package llm
