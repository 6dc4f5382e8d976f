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


// Package ai defines the AI service abstractions used by the ingestion
// pipeline: text embedding and structured content analysis.
//
// The interfaces are implemented by the openai subpackage (any
// OpenAI-compatible API, including Ollama and vLLM) and the mock subpackage
// (deterministic test doubles). The pipeline treats both services as
// recoverable: a bookmark whose analysis or embedding fails still completes
// with whatever enrichment succeeded.
package ai
