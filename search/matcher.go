package search

import (
	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/language"
	xsearch "golang.org/x/text/search"
)

// ContextRunes is how much surrounding text a match snippet carries on
// each side, in runes (snapped outward to grapheme boundaries).
const ContextRunes = 50

// Match is one occurrence of the query on a page.
type Match struct {
	// Page is the page index the match occurs on.
	Page int

	// Context is the match with surrounding text for preview.
	Context string

	// Ordinal is the match's position in the full ordered result
	// sequence for the current query, starting at 0.
	Ordinal int

	// Start and End are rune offsets of the match within the page
	// text, usable for highlighting.
	Start, End int
}

// matcher performs case-insensitive, collation-aware substring
// matching for a single compiled query.
type matcher struct {
	pat *xsearch.Pattern
}

// newMatcher compiles the query. Matching ignores case and diacritics
// so "invoice" finds "Invoice" and "ínvoice" alike.
func newMatcher(query string) *matcher {
	m := xsearch.New(language.Und, xsearch.IgnoreCase, xsearch.IgnoreDiacritics)
	return &matcher{pat: m.CompileString(query)}
}

// find returns all matches of the query in text, in order. Offsets in
// the returned matches are rune offsets; ordinals are left zero for
// the index to assign.
func (m *matcher) find(page int, text string) []Match {
	if text == "" {
		return nil
	}
	var out []Match
	runes := []rune(text)
	byteOff := 0
	runeOff := 0
	for byteOff < len(text) {
		start, end := m.pat.IndexString(text[byteOff:])
		if start < 0 {
			break
		}
		if end <= start {
			break
		}
		startRune := runeOff + runeCount(text[byteOff:byteOff+start])
		endRune := runeOff + runeCount(text[byteOff:byteOff+end])
		out = append(out, Match{
			Page:    page,
			Context: snippet(runes, startRune, endRune),
			Start:   startRune,
			End:     endRune,
		})
		runeOff = endRune
		byteOff += end
	}
	return out
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// snippet extracts the match plus ContextRunes of context on each
// side. Window edges are snapped to grapheme-cluster boundaries so a
// snippet never splits a combining sequence or emoji.
func snippet(runes []rune, start, end int) string {
	lo := start - ContextRunes
	if lo < 0 {
		lo = 0
	}
	hi := end + ContextRunes
	if hi > len(runes) {
		hi = len(runes)
	}
	lo, hi = snapToGraphemes(runes, lo, hi)
	return string(runes[lo:hi])
}

// snapToGraphemes widens [lo, hi) to the nearest enclosing grapheme
// boundaries.
func snapToGraphemes(runes []rune, lo, hi int) (int, int) {
	if len(runes) == 0 || (lo == 0 && hi == len(runes)) {
		return lo, hi
	}
	var seg segmenter.Segmenter
	seg.Init(runes)
	iter := seg.GraphemeIterator()
	outLo, outHi := lo, hi
	for iter.Next() {
		g := iter.Grapheme()
		gs := g.Offset
		ge := g.Offset + len(g.Text)
		if gs < lo && ge > lo {
			outLo = gs
		}
		if gs < hi && ge > hi {
			outHi = ge
		}
		if gs >= hi {
			break
		}
	}
	return outLo, outHi
}
