// Package fuzzy scores candidate strings against an interactively typed
// query.
package fuzzy

// Rank scores how densely the characters of query occur in order within
// candidate. It is pure and safe to call from any goroutine.
//
// Every occurrence of the first query character is tried as a start. From
// there the remaining query characters are matched greedily left to right,
// each earning max(10-gap, 1) where gap counts the skipped characters; the
// first character earns 10. The best start wins and the result is
// best*100 - |len(candidate)-len(query)|, never below zero. Lengths are in
// runes.
func Rank(candidate, query string) int {
	if query == "" {
		return 0
	}
	c, q := []rune(candidate), []rune(query)

	best := 0
	for start, r := range c {
		if r != q[0] {
			continue
		}
		if s := scoreFrom(c, q, start); s > best {
			best = s
		}
	}
	if best == 0 {
		return 0
	}

	diff := len(c) - len(q)
	if diff < 0 {
		diff = -diff
	}
	if score := best*100 - diff; score > 0 {
		return score
	}
	return 0
}

func scoreFrom(c, q []rune, start int) int {
	score := 10
	pos := start + 1
	for _, want := range q[1:] {
		gap := 0
		for pos < len(c) && c[pos] != want {
			pos++
			gap++
		}
		if pos == len(c) {
			break
		}
		score += max(10-gap, 1)
		pos++
	}
	return score
}
