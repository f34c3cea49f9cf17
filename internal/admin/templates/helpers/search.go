package helpers

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
	"golang.org/x/text/unicode/norm"
)

// HighlightSegment is a run of text that either matched the search term or did not.
type HighlightSegment struct {
	Text  string
	Match bool
}

// HighlightSegments splits text around occurrences of term. Matching ignores case, width
// and diacritics the same way order search does, so "maria" marks "María".
func HighlightSegments(text, term string) []HighlightSegment {
	if text == "" {
		return nil
	}
	fold := newFolder()
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return []HighlightSegment{{Text: text}}
	}

	src := []rune(text)
	var haystack strings.Builder
	// starts maps a byte offset in haystack to the rune index it begins.
	starts := make(map[int]int, len(src)+1)
	for i, r := range src {
		starts[haystack.Len()] = i
		haystack.WriteString(fold(string(r)))
	}
	starts[haystack.Len()] = len(src)
	folded := haystack.String()

	var segments []HighlightSegment
	last := 0
	for pos := 0; pos < len(folded); {
		idx := strings.Index(folded[pos:], needle)
		if idx < 0 {
			break
		}
		begin, end := pos+idx, pos+idx+len(needle)
		from, okFrom := starts[begin]
		to, okTo := starts[end]
		if !okFrom || !okTo {
			pos = begin + 1
			continue
		}
		if from > last {
			segments = append(segments, HighlightSegment{Text: string(src[last:from])})
		}
		segments = append(segments, HighlightSegment{Text: string(src[from:to]), Match: true})
		last = to
		pos = end
	}
	if last < len(src) {
		segments = append(segments, HighlightSegment{Text: string(src[last:])})
	}
	return segments
}

func newFolder() func(string) string {
	strip := transform.Chain(width.Fold, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	caser := cases.Fold()
	return func(s string) string {
		out, _, err := transform.String(strip, s)
		if err != nil {
			out = s
		}
		return caser.String(out)
	}
}
