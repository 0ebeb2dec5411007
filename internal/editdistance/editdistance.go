// Package editdistance computes the Levenshtein edit distance between strings.
//
// All functions operate on runes, so multi-byte UTF-8 characters count as a
// single position and are never split.
package editdistance

// Distance returns the minimum number of single-rune insertions, deletions
// and substitutions needed to turn a into b.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	return distanceRunes(ra, rb)
}

// DistanceWithin reports the distance between a and b if it is at most max.
// When the distance exceeds max it returns (max+1, false) without finishing
// the full table.
func DistanceWithin(a, b string, max int) (int, bool) {
	if max < 0 {
		return 0, false
	}
	ra := []rune(a)
	rb := []rune(b)

	// The length difference is a lower bound on the distance.
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return max + 1, false
	}

	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra), true
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		// Row minima never decrease, so no later cell can come back under max.
		if rowMin > max {
			return max + 1, false
		}
		prev, curr = curr, prev
	}

	d := prev[len(rb)]
	if d > max {
		return max + 1, false
	}
	return d, true
}

// distanceRunes fills the table with two rolling rows: row i-1 in prev and
// row i in curr.
func distanceRunes(ra, rb []rune) int {
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	// Keep the shorter string on the inner axis.
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
