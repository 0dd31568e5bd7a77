// Package rank computes the composite quality score used to order results.
package rank

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/aggregate"
	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

const (
	similarityWeight = 60
	engagementWeight = 20
	dateBonus        = 4
	statsBonus       = 4
	sourceBonus      = 2
	originalityBonus = 10
)

// Scored is a record with its ranking signals.
type Scored struct {
	tweet.Record
	Similarity int     `json:"similarity"`
	Quality    float64 `json:"quality"`
}

// Options constrain the ranked list.
type Options struct {
	// Limit caps the output length. Zero means no cap.
	Limit int
	// PerAuthor caps results from one username. Zero means no cap.
	PerAuthor int
}

// Score combines similarity (0..100), engagement percentile (0..1), metadata
// completeness and originality into a value in [0, 100].
func Score(r tweet.Record, percentile float64, similarity int) float64 {
	if percentile < 0 {
		percentile = 0
	}
	if percentile > 1 {
		percentile = 1
	}
	s := float64(similarity) / 100 * similarityWeight
	s += percentile * engagementWeight
	s += float64(MetadataBonus(r))
	if !LooksDerivative(r) {
		s += originalityBonus
	}
	return math.Round(s*100) / 100
}

// MetadataBonus rewards a real date, any engagement and the richest source.
func MetadataBonus(r tweet.Record) int {
	b := 0
	if r.HasDate() {
		b += dateBonus
	}
	if r.Stats.Any() {
		b += statsBonus
	}
	if r.Source == aggregate.RichestSource {
		b += sourceBonus
	}
	return b
}

var quoteMarkerRe = regexp.MustCompile(`(?i)\bQT\b|\bquoted\b`)

// LooksDerivative reports whether the record is a retweet or a quote of
// another tweet rather than original text.
func LooksDerivative(r tweet.Record) bool {
	if r.IsRetweet {
		return true
	}
	c := strings.TrimSpace(r.Content)
	if strings.HasPrefix(c, "RT @") {
		return true
	}
	return tweet.IDFromURL(c) != "" && quoteMarkerRe.MatchString(c)
}

// Percentiles returns, per record, the share of the other records with
// strictly lower engagement. Ties share a rank; a lone record gets 1.
func Percentiles(records []tweet.Record) []float64 {
	n := len(records)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = 1
		return out
	}
	eng := make([]int, n)
	for i, r := range records {
		eng[i] = r.Stats.Engagement()
	}
	sorted := append([]int(nil), eng...)
	sort.Ints(sorted)
	for i, e := range eng {
		below := sort.SearchInts(sorted, e)
		out[i] = float64(below) / float64(n-1)
	}
	return out
}

// Rank scores records against query and sorts them by quality, highest
// first. Equal scores keep input order.
func Rank(query string, records []tweet.Record, sim func(a, b string) int, opt Options) []Scored {
	if sim == nil {
		sim = textnorm.Similarity
	}
	pct := Percentiles(records)
	out := make([]Scored, 0, len(records))
	for i, r := range records {
		s := sim(query, r.Content)
		out = append(out, Scored{Record: r, Similarity: s, Quality: Score(r, pct[i], s)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quality > out[j].Quality })

	if opt.PerAuthor <= 0 && opt.Limit <= 0 {
		return out
	}
	perAuthor := map[string]int{}
	capped := out[:0]
	for _, s := range out {
		user := tweet.NormalizeUsername(s.Author.Username)
		if opt.PerAuthor > 0 && user != "" && perAuthor[user] >= opt.PerAuthor {
			continue
		}
		perAuthor[user]++
		capped = append(capped, s)
		if opt.Limit > 0 && len(capped) >= opt.Limit {
			break
		}
	}
	return capped
}
