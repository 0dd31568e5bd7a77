package rank

import (
	"testing"

	"github.com/hyperifyio/copyfinder/internal/tweet"
)

func withEngagement(user string, likes int) tweet.Record {
	return tweet.Record{Author: tweet.Author{Username: user}, Content: "same text", Date: tweet.UnknownDate, Stats: tweet.Stats{Likes: likes}}
}

func TestScore_Components(t *testing.T) {
	r := tweet.Record{Content: "original words", Date: "Jan 1, 2024", Source: "nitter", Stats: tweet.Stats{Likes: 1}}
	if got := Score(r, 1, 100); got != 100 {
		t.Fatalf("max score = %v", got)
	}
	bare := tweet.Record{Content: "RT @someone: words", Date: tweet.UnknownDate}
	if got := Score(bare, 0, 50); got != 30 {
		t.Fatalf("bare retweet score = %v", got)
	}
}

func TestScore_Monotonic(t *testing.T) {
	r := tweet.Record{Content: "words", Date: tweet.UnknownDate}
	prev := -1.0
	for p := 0.0; p <= 1.0; p += 0.1 {
		s := Score(r, p, 70)
		if s < prev {
			t.Fatalf("score decreased with percentile at %v", p)
		}
		prev = s
	}
	prev = -1
	for sim := 0; sim <= 100; sim += 5 {
		s := Score(r, 0.5, sim)
		if s < prev {
			t.Fatalf("score decreased with similarity at %d", sim)
		}
		prev = s
	}
}

func TestLooksDerivative(t *testing.T) {
	cases := []struct {
		r    tweet.Record
		want bool
	}{
		{tweet.Record{Content: "RT @bob: hi"}, true},
		{tweet.Record{Content: "so true QT https://x.com/bob/status/12"}, true},
		{tweet.Record{Content: "Quoted this https://x.com/bob/status/12"}, true},
		{tweet.Record{Content: "QT but no link"}, false},
		{tweet.Record{Content: "plain text", IsRetweet: true}, true},
		{tweet.Record{Content: "plain text"}, false},
	}
	for _, tc := range cases {
		if got := LooksDerivative(tc.r); got != tc.want {
			t.Fatalf("LooksDerivative(%q)=%v want %v", tc.r.Content, got, tc.want)
		}
	}
}

func TestPercentiles(t *testing.T) {
	recs := []tweet.Record{withEngagement("a", 10), withEngagement("b", 1000000), withEngagement("c", 10), withEngagement("d", 0)}
	got := Percentiles(recs)
	want := []float64{1.0 / 3, 1, 1.0 / 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("percentiles = %v want %v", got, want)
		}
	}
	if one := Percentiles(recs[:1]); one[0] != 1 {
		t.Fatalf("single percentile = %v", one)
	}
}

func TestRank_OrdersAndCaps(t *testing.T) {
	recs := []tweet.Record{withEngagement("a", 1), withEngagement("a", 50), withEngagement("b", 5), withEngagement("c", 0)}
	sim := func(_, _ string) int { return 80 }
	out := Rank("same text", recs, sim, Options{})
	if len(out) != 4 || out[0].Stats.Likes != 50 || out[len(out)-1].Stats.Likes != 0 {
		t.Fatalf("unexpected order: %+v", out)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Quality > out[i-1].Quality {
			t.Fatalf("not sorted at %d", i)
		}
	}
	capped := Rank("same text", recs, sim, Options{PerAuthor: 1, Limit: 2})
	if len(capped) != 2 || capped[0].Author.Username != "a" || capped[1].Author.Username != "b" {
		t.Fatalf("capped: %+v", capped)
	}
}
