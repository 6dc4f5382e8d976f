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

import "strings"

// repairJSON attempts to fix common JSON formatting issues from LLM
// responses. It specifically handles missing opening quotes before keys,
// e.g. `, category":` becomes `, "category":`.
func repairJSON(s string) string {
	var fixed strings.Builder
	fixed.Grow(len(s) + 16)

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		fixed.WriteRune(ch)
		i++

		if ch != '{' && ch != ',' {
			continue
		}

		// Skip whitespace after { or ,
		for i < len(runes) && (runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t') {
			fixed.WriteRune(runes[i])
			i++
		}

		// A bare identifier here may be a key missing its opening quote
		if i >= len(runes) || runes[i] == '"' || !isLetter(runes[i]) {
			continue
		}

		keyStart := i
		for i < len(runes) && (isLetter(runes[i]) || runes[i] == '_') {
			i++
		}

		// Confirmed when the identifier runs straight into `":`
		if i+1 < len(runes) && runes[i] == '"' && runes[i+1] == ':' {
			fixed.WriteRune('"')
		}
		fixed.WriteString(string(runes[keyStart:i]))
	}

	return fixed.String()
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
