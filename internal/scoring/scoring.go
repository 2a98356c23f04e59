// Package scoring implements the round scoring rules for the double-deck
// Spades variant: bid/overtrick scoring, Nil outcomes, and the running
// total "denominator" penalty.
package scoring

const (
	// NilBonus is gained for a successful Nil bid and lost for a failed one.
	NilBonus = 100

	// Penalty is subtracted when a running total crosses a denominator.
	Penalty = 55
)

// RoundScore computes the round score and overtrick-bag contribution for a
// non-nil scoring unit (a player in individual play, a team in team play).
//
// A zero bid scores one point per trick and every trick counts as an
// overtrick. A made positive bid scores ten per bid trick plus one per
// overtrick. A failed bid scores minus ten per bid trick and contributes
// no overtricks.
func RoundScore(bid, tricks int) (score, overtricks int) {
	switch {
	case bid == 0:
		return tricks, tricks
	case tricks >= bid:
		return 10*bid + (tricks - bid), tricks - bid
	default:
		return -10 * bid, 0
	}
}

// NilScore computes the score for a player who declared Nil. Nil bids
// never contribute to the overtrick bag.
func NilScore(tricks int) int {
	if tricks == 0 {
		return NilBonus
	}
	return -NilBonus
}

// CrossesDenominator reports whether moving a running total from prev to
// next passes through an integer whose absolute value ends in the digit 5.
// The interval is open at prev and closed at next, so landing exactly on a
// denominator counts but leaving one does not.
func CrossesDenominator(prev, next int) bool {
	if prev == next {
		return false
	}
	step := 1
	if next < prev {
		step = -1
	}
	for x := prev + step; ; x += step {
		if m := x % 10; m == 5 || m == -5 {
			return true
		}
		if x == next {
			return false
		}
	}
}

// ApplyRound adds a round score to a running total and applies the
// denominator penalty when the move crosses one.
func ApplyRound(total, roundScore int) (newTotal int, penalized bool) {
	newTotal = total + roundScore
	if CrossesDenominator(total, newTotal) {
		return newTotal - Penalty, true
	}
	return newTotal, false
}

// BestUnit returns the unit with the highest total. Ties resolve to the
// earliest unit in order, which is deterministic because callers iterate
// ordered slices rather than maps.
func BestUnit(order []string, totals map[string]int) (name string, score int) {
	for i, unit := range order {
		if i == 0 || totals[unit] > score {
			name, score = unit, totals[unit]
		}
	}
	return name, score
}
