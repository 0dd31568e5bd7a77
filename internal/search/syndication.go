package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// DefaultSyndicationURL is the embed widget's tweet endpoint.
const DefaultSyndicationURL = "https://cdn.syndication.twimg.com/tweet-result"

// Syndication is the fast single-tweet lookup backed by the embed endpoint.
type Syndication struct {
	BaseURL string
	HTTP    Getter
}

func (s *Syndication) Name() string { return "syndication" }

func (s *Syndication) Lookup(ctx context.Context, id string, opt Options) (Detail, error) {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return Detail{}, fmt.Errorf("syndication: invalid id %q", id)
	}
	if s.HTTP == nil {
		return Detail{}, fmt.Errorf("syndication: missing http client")
	}
	base := s.BaseURL
	if base == "" {
		base = DefaultSyndicationURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return Detail{}, err
	}
	q := u.Query()
	q.Set("id", id)
	q.Set("lang", "en")
	q.Set("token", syndicationToken(id))
	u.RawQuery = q.Encode()

	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	body, _, err := s.HTTP.Get(ctx, u.String())
	if err != nil {
		return Detail{}, fmt.Errorf("syndication: %w", err)
	}
	var sr syndicationTweet
	if err := json.Unmarshal(body, &sr); err != nil {
		return Detail{}, fmt.Errorf("syndication: decode: %w", err)
	}
	if sr.Typename == "TweetTombstone" || sr.IDStr == "" && sr.Text == "" {
		return Detail{}, fmt.Errorf("syndication: tweet %s unavailable", id)
	}
	d := Detail{
		Author: tweet.Author{
			Fullname: sr.User.Name,
			Username: sr.User.ScreenName,
			Avatar:   sr.User.Avatar,
		},
		Content: sr.Text,
		Date:    tweet.UnknownDate,
		Stats: tweet.Stats{
			Replies:  sr.ConversationCount,
			Retweets: sr.RetweetCount,
			Quotes:   sr.QuoteCount,
			Likes:    sr.FavoriteCount,
		},
	}
	if strings.TrimSpace(sr.CreatedAt) != "" {
		d.Date = sr.CreatedAt
	}
	return d, nil
}

type syndicationTweet struct {
	Typename          string `json:"__typename"`
	IDStr             string `json:"id_str"`
	Text              string `json:"text"`
	CreatedAt         string `json:"created_at"`
	FavoriteCount     int    `json:"favorite_count"`
	ConversationCount int    `json:"conversation_count"`
	RetweetCount      int    `json:"retweet_count"`
	QuoteCount        int    `json:"quote_count"`
	User              struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		Avatar     string `json:"profile_image_url_https"`
	} `json:"user"`
}

// syndicationToken derives the token the embed widget sends:
// (id / 1e15 * pi) in base 36 with zeros and the point removed.
func syndicationToken(id string) string {
	n, err := strconv.ParseFloat(id, 64)
	if err != nil {
		return ""
	}
	x := n / 1e15 * math.Pi
	ip, frac := math.Modf(x)
	var b strings.Builder
	b.WriteString(strconv.FormatInt(int64(ip), 36))
	for i := 0; i < 12 && frac > 0; i++ {
		frac *= 36
		d, f := math.Modf(frac)
		b.WriteString(strconv.FormatInt(int64(d), 36))
		frac = f
	}
	return strings.ReplaceAll(b.String(), "0", "")
}
