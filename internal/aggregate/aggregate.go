// Package aggregate merges raw records from every variant and source into one
// record per physical tweet and separates the source author's own reposts.
package aggregate

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// RichestSource is the upstream whose records carry the most metadata.
const RichestSource = "nitter"

// IdentityKey returns the key under which r is deduplicated: the tweet id
// when the URL carries one, else the lower-cased username joined with a hash
// of the normalized content. Records with neither yield "".
func IdentityKey(r tweet.Record) string {
	if id := r.ID(); id != "" {
		return "id:" + id
	}
	user := tweet.NormalizeUsername(r.Author.Username)
	content := textnorm.Normalize(r.Content)
	if user == "" || content == "" {
		return ""
	}
	h := sha1.Sum([]byte(strings.ToLower(content)))
	return "u:" + user + ":" + hex.EncodeToString(h[:8])
}

// Richness scores how complete a record is.
func Richness(r tweet.Record) int {
	score := 0
	if r.Source == RichestSource {
		score += 3
	}
	if r.HasDate() {
		score += 2
	}
	if strings.TrimSpace(r.Author.Avatar) != "" {
		score++
	}
	if r.Stats.Any() {
		score += 2
	}
	return score
}

// Canonicalize keeps one record per identity key, in first-seen key order.
// A colliding record replaces the kept one only when strictly richer; the
// replacement inherits MatchedBy when it has none. Canonicalize is
// idempotent.
func Canonicalize(records []tweet.Record) []tweet.Record {
	index := make(map[string]int, len(records))
	out := make([]tweet.Record, 0, len(records))
	for _, r := range records {
		key := IdentityKey(r)
		if key == "" {
			continue
		}
		r.URL = cleanURL(r.URL)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, r)
			continue
		}
		cur := out[i]
		if Richness(r) > Richness(cur) {
			if r.MatchedBy == "" {
				r.MatchedBy = cur.MatchedBy
			}
			out[i] = r
		}
	}
	return out
}

// cleanURL drops fragments and share-tracking parameters from status links.
func cleanURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for _, p := range []string{"s", "t", "ref_src", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"} {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
