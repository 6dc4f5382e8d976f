package ai

import "math"

// MaxAnalysisInput caps how much page content is sent to the analyzer and
// the embedder in one call.
const MaxAnalysisInput = 8000

// TruncateText shortens s to at most max characters, marking the cut with
// an ellipsis. The cut lands on a rune boundary, so multi-byte text never
// comes back as invalid UTF-8. Strings at or under the limit come back
// unchanged.
func TruncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// NormalizeVector scales a vector to unit length so that the dot product of
// two normalized vectors is their cosine similarity. Zero vectors come back
// unchanged.
func NormalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}

	norm := math.Sqrt(sumSquares)
	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / norm)
	}
	return normalized
}
