package classify

import "strings"

// Normalize lowercases text, replaces every character outside [a-z0-9 ]
// with a space, and collapses runs of whitespace to a single space.
// Classification and duplicate detection both use it so their notion of
// "same word" agrees.
func Normalize(text string) string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Words returns the normalized text split into words.
func Words(text string) []string {
	return strings.Fields(Normalize(text))
}
