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


package fetch

import "errors"

var (
	// ErrSchemeNotAllowed indicates the URL scheme is not http or https.
	ErrSchemeNotAllowed = errors.New("url scheme not allowed")

	// ErrPrivateTarget indicates the URL resolves to a private, loopback,
	// link-local, or otherwise non-public address.
	ErrPrivateTarget = errors.New("target address is not public")

	// ErrHTTPStatus indicates the server responded with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrContentType indicates the response is not an HTML document.
	ErrContentType = errors.New("response is not html")

	// ErrBodyTooLarge indicates the response body exceeded the size cap.
	ErrBodyTooLarge = errors.New("response body too large")
)
