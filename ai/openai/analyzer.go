// Copyright 2025 Stash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// Low but nonzero temperature: summaries read better with a little
	// variation, while categories and tags stay stable.
	analysisTemperature = 0.3

	maxTags = 7
)

// Analyzer implements ai.Analyzer using OpenAI-compatible chat APIs.
type Analyzer struct {
	client llms.Model
	logger *slog.Logger
}

// llmAnalysis is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type llmAnalysis struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AnalyzerHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.AnalyzerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		client: client,
		logger: slog.Default().With("component", "openai-analyzer"),
	}, nil
}

// NewAnalyzer creates a new analyzer using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config)
}

// Analyze summarizes, categorizes, and tags page content using an LLM.
func (a *Analyzer) Analyze(ctx context.Context, title, url, content string) (*core.Analysis, error) {
	content = ai.TruncateText(content, ai.MaxAnalysisInput)
	if title == "" {
		title = "N/A"
	}

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildAnalysisPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf("URL: %s\nTitle: %s\n\nContent:\n%s", url, title, content)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result llmAnalysis
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := a.client.GenerateContent(ctx, messages,
			llms.WithTemperature(analysisTemperature),
			llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			a.logger.Debug("no choices returned from model")
			return nil, fmt.Errorf("analyzer returned no choices")
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			a.logger.Warn("error parsing analyzer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		a.logger.Error("failed to parse analyzer response after retries", "err", lastErr)
		return nil, lastErr
	}

	analysis := &core.Analysis{
		Summary:  strings.TrimSpace(result.Summary),
		Category: normalizeCategory(result.Category),
		Tags:     normalizeTags(result.Tags),
	}

	a.logger.Debug("analyzed content",
		"category", analysis.Category,
		"tags", len(analysis.Tags))

	return analysis, nil
}

// stripCodeFences removes markdown code fences some models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeCategory coerces anything outside the taxonomy to CategoryOther.
func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if ai.ValidCategory(category) {
		return category
	}
	// Models sometimes change case; match insensitively before giving up
	for _, c := range ai.Categories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return ai.CategoryOther
}

// normalizeTags lowercases tags, converts inner spaces to hyphens, drops
// empties and duplicates, and caps the count.
func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.ReplaceAll(tag, " ", "-")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
		if len(normalized) == maxTags {
			break
		}
	}
	return normalized
}
