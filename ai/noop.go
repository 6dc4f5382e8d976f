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


package ai

import (
	"context"
	"errors"

	"github.com/stashd/stash/core"
)

// ErrUnavailable is returned by the noop provider's services. Callers that
// treat AI failures as degradation rather than hard errors (the pipeline,
// the semantic search leg) handle an unconfigured deployment the same way
// as a service outage.
var ErrUnavailable = errors.New("ai service not configured")

type noopEmbedder struct{}

func (noopEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (noopEmbedder) EmbedTexts(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(_ context.Context, _, _, _ string) (*core.Analysis, error) {
	return nil, ErrUnavailable
}

// NoopProvider is an AIProvider for deployments without AI services.
// Bookmarks still get fetched, indexed and searchable lexically; analysis
// and embeddings are skipped.
type NoopProvider struct{}

// NewNoopProvider creates a provider whose services always report
// ErrUnavailable.
func NewNoopProvider() AIProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Embedder() Embedder {
	return noopEmbedder{}
}

func (p *NoopProvider) Analyzer() Analyzer {
	return noopAnalyzer{}
}

func (p *NoopProvider) Close() error {
	return nil
}
