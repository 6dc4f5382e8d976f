package openai

import (
	"fmt"
	"strings"

	"github.com/stashd/stash/ai"
)

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "string"
    },
    "category": {
      "type": "string"
    },
    "tags": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"
      },
      "minItems": 3,
      "maxItems": 7
    }
  },
  "required": ["summary", "category", "tags"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `You are a bookmark categorization assistant. Analyze the provided page content and return a JSON object describing it.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "summary" is a concise 2-3 sentence summary of the content.
- "category" must match exactly one of the listed values: %s.
- If none of the categories fits, use "Other".
- "tags" is an array of 3-7 relevant topic tags: lowercase, no spaces, use hyphens.
- Base everything on the provided content. Do not hallucinate.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
URL: https://go.dev/blog/pipelines
Title: Go Concurrency Patterns: Pipelines

Content:
Go's concurrency primitives make it easy to construct streaming data pipelines...
Output:
{
  "summary": "Explains how to build streaming data pipelines in Go using goroutines and channels. Covers fan-out, fan-in, and explicit cancellation.",
  "category": "Programming",
  "tags": ["go", "concurrency", "pipelines", "channels"]
}`

// buildAnalysisPrompt creates the system prompt with the category taxonomy
// embedded.
func buildAnalysisPrompt() string {
	return fmt.Sprintf(analysisPromptTemplate,
		analysisResponseSchema,
		strings.Join(ai.Categories, ", "))
}
