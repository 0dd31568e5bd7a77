package aggregate

import (
	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// DefaultSelfDuplicateThreshold is the similarity at or above which a post
// by the source author counts as a repost.
const DefaultSelfDuplicateThreshold = 90

// Reasons recorded on self-duplicates.
const (
	ReasonSameContent   = "same_content"
	ReasonNearDuplicate = "near_duplicate"
)

// SourceTweet identifies the tweet the user is searching copies of. Every
// field is optional.
type SourceTweet struct {
	ID       string
	Username string
	Content  string
}

// SelfDuplicate is a repost by the source author.
type SelfDuplicate struct {
	tweet.Record
	Similarity int    `json:"similarity"`
	Reason     string `json:"reason"`
}

// Split is the outcome of SplitSelfDuplicates.
type Split struct {
	External       []tweet.Record
	SelfDuplicates []SelfDuplicate
	// Excluded counts records dropped for being the source tweet itself.
	Excluded int
}

// SplitOptions tune classification.
type SplitOptions struct {
	Threshold  int
	Similarity func(a, b string) int
}

// SplitSelfDuplicates partitions canonical records. The source tweet itself
// is dropped; posts by the source author with the same content, or with
// content at least Threshold similar to query, become self-duplicates.
func SplitSelfDuplicates(records []tweet.Record, src SourceTweet, query string, opt SplitOptions) Split {
	if opt.Threshold <= 0 {
		opt.Threshold = DefaultSelfDuplicateThreshold
	}
	if opt.Similarity == nil {
		opt.Similarity = textnorm.Similarity
	}
	srcUser := tweet.NormalizeUsername(src.Username)
	srcContent := textnorm.Normalize(src.Content)
	if srcContent == "" {
		srcContent = textnorm.Normalize(query)
	}

	var out Split
	for _, r := range records {
		id := r.ID()
		if src.ID != "" && id == src.ID {
			out.Excluded++
			continue
		}
		if srcUser == "" || tweet.NormalizeUsername(r.Author.Username) != srcUser {
			out.External = append(out.External, r)
			continue
		}
		if srcContent != "" && textnorm.Normalize(r.Content) == srcContent {
			out.SelfDuplicates = append(out.SelfDuplicates, SelfDuplicate{Record: r, Similarity: 100, Reason: ReasonSameContent})
			continue
		}
		if sim := opt.Similarity(query, r.Content); sim >= opt.Threshold {
			out.SelfDuplicates = append(out.SelfDuplicates, SelfDuplicate{Record: r, Similarity: sim, Reason: ReasonNearDuplicate})
			continue
		}
		out.External = append(out.External, r)
	}
	return out
}
