package planner

import (
	"strings"

	"github.com/hyperifyio/copyfinder/internal/textnorm"
)

const (
	shortMaxTokens  = 3
	shortMaxRunes   = 18
	genericMinRatio = 0.6
)

// Classification describes how specific a query is.
type Classification struct {
	Short   bool `json:"short"`
	Generic bool `json:"generic"`
}

// DefaultGenericTerms are words that on their own match a huge number of
// unrelated posts.
var DefaultGenericTerms = []string{
	"a", "an", "the", "i", "me", "my", "you", "we", "it", "this", "that", "is", "are",
	"am", "be", "so", "just", "really", "very", "lol", "lmao", "omg", "love", "like",
	"good", "morning", "night", "day", "today", "happy", "sad", "thank", "thanks",
	"yes", "no", "same", "mood", "vibes", "when", "why", "what", "how", "people", "life",
	"time", "new", "best", "ever", "all", "everyone", "us", "our", "and", "or", "of",
	"to", "in", "on", "for", "with", "at", "not", "can", "do", "get", "go", "got",
}

// Classifier decides whether a query needs adaptive variants.
type Classifier struct {
	set map[string]struct{}
}

// NewClassifier builds a Classifier; nil terms selects DefaultGenericTerms.
func NewClassifier(terms []string) *Classifier {
	if terms == nil {
		terms = DefaultGenericTerms
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Classifier{set: set}
}

// Classify flags short queries (≤3 tokens or <18 characters) and generic
// ones (≥60% of tokens in the generic term list).
func (c *Classifier) Classify(raw string) Classification {
	norm := textnorm.Normalize(raw)
	out := Classification{
		Short: len(textnorm.Tokens(norm)) <= shortMaxTokens || textnorm.RuneLen(norm) < shortMaxRunes,
	}
	tokens := textnorm.Tokens(strings.ToLower(textnorm.NormalizeStrict(raw)))
	if len(tokens) == 0 {
		return out
	}
	hits := 0
	for _, t := range tokens {
		if _, ok := c.set[t]; ok {
			hits++
		}
	}
	out.Generic = float64(hits)/float64(len(tokens)) >= genericMinRatio
	return out
}
