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


// Package fetch downloads and parses web pages for the ingestion pipeline.
//
// Fetching untrusted, user-supplied URLs is the most exposed surface of the
// system, so the fetcher defends in depth:
//
//   - URLs are validated before the request: http(s) only, blocked
//     hostnames refused, and every address the hostname resolves to must
//     be public. DNS failure counts as blocked.
//   - The dialer re-checks the address it actually connects to, closing
//     the window between validation and connection.
//   - Redirect hops are validated like the original URL.
//   - Responses are capped at 10 MB and must be HTML.
//
// Parsing extracts the page title, description, Open Graph metadata,
// favicon, language, publication date, and the main readable text, and
// produces a sanitized HTML snapshot safe to render offline.
package fetch
