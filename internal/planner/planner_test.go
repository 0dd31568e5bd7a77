package planner

import (
	"strings"
	"testing"
)

const longPost = "Breaking: the city council has voted to approve the new downtown park project, construction starts next spring and finishes by late autumn!"

func TestBuildQueryVariants_Unsearchable(t *testing.T) {
	for _, in := range []string{"", "hi there", "hello there!!", "a b c d", "onlyonelongword here"} {
		if got := BuildQueryVariants(in, Options{}); len(got) != 0 {
			t.Fatalf("%q: expected no variants, got %v", in, got)
		}
	}
}

func TestBuildQueryVariants_DedupesNormalizedDuplicate(t *testing.T) {
	got := BuildQueryVariants("hello world this is long enough", Options{})
	if len(got) != 2 {
		t.Fatalf("expected 2 variants, got %d: %v", len(got), got)
	}
	if got[0].Key != KeyExactQuoted || got[0].Query != `"hello world this is long enough"` || !got[0].Quoted {
		t.Fatalf("unexpected first variant: %+v", got[0])
	}
	if got[1].Key != KeyKeywordFallback || got[1].Plain != "hello world long enough" || got[1].Quoted {
		t.Fatalf("unexpected keyword variant: %+v", got[1])
	}
}

func TestBuildQueryVariants_LongPost(t *testing.T) {
	got := BuildQueryVariants(longPost, Options{})
	keys := make([]string, 0, len(got))
	for _, v := range got {
		keys = append(keys, v.Key)
	}
	want := []string{KeyExactQuoted, KeyNormalizedQuoted, KeyCoreWindowQuoted, KeyKeywordFallback}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if got[2].Plain != "voted to approve the new downtown park project, construction starts next" {
		t.Fatalf("unexpected core window: %q", got[2].Plain)
	}
	if got[3].Plain != "breaking city council voted approve new downtown park" {
		t.Fatalf("unexpected keywords: %q", got[3].Plain)
	}
}

func TestBuildQueryVariants_CapAndUnique(t *testing.T) {
	inputs := []string{longPost, "hello world this is long enough", "THE SAME the same The Same words words", "#golang @gopher is this the best language??? yes!!!"}
	for _, in := range inputs {
		for max := 1; max <= 4; max++ {
			got := BuildQueryVariants(in, Options{MaxVariants: max})
			if len(got) > max {
				t.Fatalf("%q max=%d: got %d variants", in, max, len(got))
			}
			seen := map[string]bool{}
			for _, v := range got {
				k := strings.ToLower(v.Plain)
				if seen[k] {
					t.Fatalf("duplicate plain %q in %v", v.Plain, got)
				}
				seen[k] = true
			}
		}
	}
}

func TestKeywords_KeepsTagsAndMentions(t *testing.T) {
	got := Keywords([]string{"this", "is", "#The", "@me", "best", "best"}, 8)
	if strings.Join(got, " ") != "#the @me best" {
		t.Fatalf("got %v", got)
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)
	if got := c.Classify("cats are great ok"); !got.Short {
		t.Fatalf("expected short: %+v", got)
	}
	if got := c.Classify("good morning everyone lol"); got.Short || !got.Generic {
		t.Fatalf("expected generic, not short: %+v", got)
	}
	if got := c.Classify(longPost); got.Short || got.Generic {
		t.Fatalf("expected specific: %+v", got)
	}
	custom := NewClassifier([]string{"council", "park"})
	if got := custom.Classify("council park council"); !got.Generic {
		t.Fatalf("expected custom terms to classify generic: %+v", got)
	}
}

func TestAdaptiveVariants(t *testing.T) {
	q := "good morning everyone lol"
	base := BuildQueryVariants(q, Options{})
	out := AdaptiveVariants(q, base, NewClassifier(nil).Classify(q))
	if len(out) != 2 || out[0].Key != KeyExactQuoted || out[1].Key != KeyBroadUnquoted {
		t.Fatalf("unexpected adaptive variants: %+v", out)
	}
	if out[1].Quoted || out[1].Query != q {
		t.Fatalf("broad variant should be unquoted text: %+v", out[1])
	}

	specific := AdaptiveVariants(longPost, BuildQueryVariants(longPost, Options{}), Classification{})
	if len(specific) != 4 {
		t.Fatalf("specific queries must not gain variants, got %d", len(specific))
	}

	capped := AdaptiveVariants(longPost, BuildQueryVariants(longPost, Options{}), Classification{Short: true})
	if len(capped) > MaxAdaptiveVariants {
		t.Fatalf("adaptive cap exceeded: %d", len(capped))
	}
}
