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


// Package search provides hybrid lexical and semantic search over
// bookmarks.
//
// A query runs as two independent legs against the same filters:
//
//   - Lexical: tokenized query terms scored against each bookmark's
//     weighted tier index (title and tags strongest, body text weakest)
//   - Semantic: the embedded query ranked against stored vectors by
//     cosine similarity, with a floor that drops noise neighbors
//
// The legs merge with reciprocal rank fusion, so a bookmark ranking
// moderately in both legs beats one ranking well in only one. The semantic
// leg degrades gracefully: with the embedding service down, search is
// lexical-only rather than broken.
package search
