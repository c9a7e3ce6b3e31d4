// Package textnorm provides a deterministic normalizer for track metadata text
// Pipeline order
// 1 Control and C1 sanitize
// 2 UTF-8 repair drop invalid bytes
// 3 Unicode NFC composition
// 4 Remove format runes ZWJ ZWNJ FEFF etc
// 5 Collapse whitespace to single spaces and trim
//
// Case and combining accents are preserved: titles and artist names are
// display text, not match keys
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
		)
	},
}

// Clean returns the normalized form of s following the pipeline described above
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)

	// 2 repair UTF-8 drop invalid bytes
	s = strings.ToValidUTF8(s, "")

	// 3-4 transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	// 5 collapse whitespace and trim
	return collapseSpaces(ns)
}

// collapseSpaces converts whitespace runs, newlines included, to a single
// ASCII space and trims the edges. Metadata fields are single line text
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
