// Package textnorm normalizes tweet text for searching and comparison.
//
// Base pass: NFC, zero-width removal, whitespace collapse, and runs of three
// or more repeated terminal punctuation marks folded to one. Strict pass:
// base pass plus removal of everything except letters, digits, whitespace,
// '@' and '#'.
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFC, runes.Remove(runes.Predicate(isZeroWidth)))
	},
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// Normalize applies the base normalization pass.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = s
	}
	out = collapseTerminalRuns(out)
	return collapseSpaces(out)
}

// NormalizeStrict applies the base pass and drops punctuation and symbols
// other than '@' and '#'.
func NormalizeStrict(s string) string {
	base := Normalize(s)
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '@', r == '#':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteByte(' ')
		}
	}
	return collapseSpaces(b.String())
}

// Tokens splits already-normalized text on whitespace.
func Tokens(s string) []string {
	return strings.Fields(s)
}

// RuneLen counts runes rather than bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

// collapseTerminalRuns folds runs of 3+ identical terminal punctuation marks
// to a single mark. Shorter runs are kept as-is.
func collapseTerminalRuns(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); {
		r := rs[i]
		if !isTerminal(r) {
			b.WriteRune(r)
			i++
			continue
		}
		j := i
		for j < len(rs) && rs[j] == r {
			j++
		}
		if j-i >= 3 {
			b.WriteRune(r)
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(r)
			}
		}
		i = j
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
