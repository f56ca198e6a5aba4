package segment

// DefaultMarkers are the boundary markers used when a Policy has none
// configured: full-width period, full-width exclamation mark and newline.
var DefaultMarkers = []rune{'。', '！', '\n'}

// LastBoundary returns the index of the latest occurrence in text of any of
// markers, or -1 when none occurs.
func LastBoundary(text []rune, markers []rune) int {
	for i := len(text) - 1; i >= 0; i-- {
		for _, m := range markers {
			if text[i] == m {
				return i
			}
		}
	}
	return -1
}
