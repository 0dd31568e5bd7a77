package planner

import (
	"strings"

	"github.com/hyperifyio/copyfinder/internal/textnorm"
)

// Variant keys, ordered from most literal to broadest.
const (
	KeyExactQuoted      = "exactQuoted"
	KeyNormalizedQuoted = "normalizedQuoted"
	KeyCoreWindowQuoted = "coreWindowQuoted"
	KeyKeywordFallback  = "keywordFallback"
	KeyBroadUnquoted    = "broadUnquoted"
	KeyKeywordWindow    = "keywordWindow"
)

const (
	DefaultMaxVariants  = 4
	MaxAdaptiveVariants = 6

	minSearchableRunes = 10
	minVariantRunes    = 8
	minVariantTokens   = 3
	coreWindowMin      = 10
	coreWindowMax      = 16
	maxKeywords        = 8
	keywordWindowSize  = 6
)

// Variant is one reformulation of the query submitted to sources.
type Variant struct {
	Key    string `json:"key"`
	Query  string `json:"query"`
	Plain  string `json:"plain"`
	Quoted bool   `json:"quoted"`
}

// Options tunes BuildQueryVariants.
type Options struct {
	MaxVariants int
}

// BuildQueryVariants turns raw text into an ordered, de-duplicated list of
// search strings. An empty result means the text is not searchable.
func BuildQueryVariants(raw string, opt Options) []Variant {
	maxVariants := opt.MaxVariants
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	base := textnorm.Normalize(raw)
	baseTokens := textnorm.Tokens(base)
	if textnorm.RuneLen(base) < minSearchableRunes || len(baseTokens) < minVariantTokens {
		return nil
	}
	strict := textnorm.NormalizeStrict(raw)
	strictTokens := textnorm.Tokens(strict)

	candidates := []Variant{
		quoted(KeyExactQuoted, base),
		quoted(KeyNormalizedQuoted, strict),
	}
	if len(baseTokens) > coreWindowMax {
		candidates = append(candidates, quoted(KeyCoreWindowQuoted, strings.Join(coreWindow(baseTokens), " ")))
	}
	if kw := Keywords(strictTokens, maxKeywords); len(kw) > 0 {
		candidates = append(candidates, unquoted(KeyKeywordFallback, strings.Join(kw, " ")))
	}

	out := make([]Variant, 0, maxVariants)
	seen := map[string]struct{}{}
	for _, v := range candidates {
		if !useful(v.Plain) {
			continue
		}
		key := strings.ToLower(v.Plain)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) >= maxVariants {
			break
		}
	}
	return out
}

// AdaptiveVariants extends base with broader reformulations for short or
// generic queries. The result never exceeds MaxAdaptiveVariants entries.
func AdaptiveVariants(raw string, base []Variant, c Classification) []Variant {
	out := append([]Variant(nil), base...)
	if !c.Short && !c.Generic {
		return out
	}
	seen := map[string]struct{}{}
	for _, v := range out {
		seen[dedupKey(v)] = struct{}{}
	}
	kw := Keywords(textnorm.Tokens(textnorm.NormalizeStrict(raw)), keywordWindowSize)
	extra := []Variant{unquoted(KeyBroadUnquoted, textnorm.Normalize(raw))}
	if len(kw) > 0 {
		extra = append(extra, unquoted(KeyKeywordWindow, strings.Join(kw, " ")))
	}
	for _, v := range extra {
		if len(out) >= MaxAdaptiveVariants {
			break
		}
		if strings.TrimSpace(v.Plain) == "" {
			continue
		}
		k := dedupKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupKey(v Variant) string {
	if v.Quoted {
		return "q:" + strings.ToLower(v.Plain)
	}
	return "u:" + strings.ToLower(v.Plain)
}

func quoted(key, text string) Variant {
	return Variant{Key: key, Query: `"` + text + `"`, Plain: text, Quoted: true}
}

func unquoted(key, text string) Variant {
	return Variant{Key: key, Query: text, Plain: text}
}

func useful(text string) bool {
	return textnorm.RuneLen(text) >= minVariantRunes && len(textnorm.Tokens(text)) >= minVariantTokens
}

// coreWindow returns the contiguous middle slice of tokens, 10..16 long.
func coreWindow(tokens []string) []string {
	size := len(tokens) / 2
	if size < coreWindowMin {
		size = coreWindowMin
	}
	if size > coreWindowMax {
		size = coreWindowMax
	}
	if size >= len(tokens) {
		return tokens
	}
	start := (len(tokens) - size) / 2
	return tokens[start : start+size]
}

// Keywords lower-cases tokens, drops stopwords (hashtags and mentions are
// always kept) and duplicates, and returns at most limit entries.
func Keywords(tokens []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := map[string]struct{}{}
	for _, t := range tokens {
		w := strings.ToLower(t)
		if w == "" {
			continue
		}
		tagged := strings.HasPrefix(w, "#") || strings.HasPrefix(w, "@")
		if !tagged && isStopword(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) >= limit {
			break
		}
	}
	return out
}
