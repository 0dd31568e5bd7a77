package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello\u200b world", "hello world"},
		{"  many   spaces\n\there ", "many spaces here"},
		{"wait!!!! what???", "wait! what?"},
		{"ok.. fine", "ok.. fine"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeStrict(t *testing.T) {
	got := NormalizeStrict("Hey @bob, check #golang — it's great!!!")
	want := "Hey @bob check #golang it s great"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("the quick brown fox", "The quick brown fox!"); s != 100 {
		t.Fatalf("expected 100 for punctuation-only difference, got %d", s)
	}
	if s := Similarity("abcdef", "uvwxyz"); s != 0 {
		t.Fatalf("expected 0, got %d", s)
	}
	near := Similarity("just setting up my twttr", "just setting up my twitter")
	if near < 80 || near >= 100 {
		t.Fatalf("expected high but imperfect similarity, got %d", near)
	}
}
