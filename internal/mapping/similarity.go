package mapping

// Ratcliff/Obershelp similarity over runes. No third-party fuzzy
// matching package is pulled in for this: the algorithm is a dozen
// lines and the scores must stay stable across dependency upgrades,
// because mapping cutoffs are tuned against them.

// Ratio returns the Ratcliff/Obershelp similarity of two strings in
// [0, 1]: twice the number of matching runes over the total length,
// where matches are found by recursing around the longest common
// substring.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	ai, bi, n := longestCommonSubstring(a, b)
	if n == 0 {
		return 0
	}
	return n +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+n:], b[bi+n:])
}

func longestCommonSubstring(a, b []rune) (ai, bi, n int) {
	// prev[j] holds the match run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > n {
					n = cur[j]
					ai = i - n
					bi = j - n
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, n
}

// Match is one fuzzy candidate with its similarity score.
type Match struct {
	Value string
	Score float64
}

// ClosestMatches scores target against every candidate and returns up
// to limit candidates with Score >= cutoff, best first. Ties keep the
// candidates' input order, so results are deterministic for a given
// vocabulary.
func ClosestMatches(target string, candidates []string, limit int, cutoff float64) []Match {
	var matches []Match
	for _, c := range candidates {
		if s := Ratio(target, c); s >= cutoff {
			matches = append(matches, Match{Value: c, Score: s})
		}
	}
	// Insertion sort keeps equal scores in input order.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
