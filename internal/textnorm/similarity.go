package textnorm

import "strings"

// Similarity scores two texts 0..100 using the Sørensen–Dice coefficient over
// character bigrams of their strict-normalized, lower-cased, space-free forms.
func Similarity(a, b string) int {
	x := compact(a)
	y := compact(b)
	if x == "" && y == "" {
		return 100
	}
	if x == y {
		return 100
	}
	xr, yr := []rune(x), []rune(y)
	if len(xr) < 2 || len(yr) < 2 {
		return 0
	}
	grams := make(map[string]int, len(xr))
	for i := 0; i < len(xr)-1; i++ {
		grams[string(xr[i:i+2])]++
	}
	overlap := 0
	for i := 0; i < len(yr)-1; i++ {
		g := string(yr[i : i+2])
		if grams[g] > 0 {
			grams[g]--
			overlap++
		}
	}
	total := (len(xr) - 1) + (len(yr) - 1)
	score := (2*overlap*100 + total/2) / total
	if score > 100 {
		score = 100
	}
	return score
}

func compact(s string) string {
	return strings.ReplaceAll(strings.ToLower(NormalizeStrict(s)), " ", "")
}
