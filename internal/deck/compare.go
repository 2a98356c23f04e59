package deck

// Beats reports whether challenger takes the trick from current, given the
// suit that was led. Spades always trump; otherwise only cards following
// the led suit compete. Equal cards (the same suit and rank from the two
// physical decks) break in favor of the challenger, i.e. the later play.
func Beats(challenger, current Card, ledSuit Suit) bool {
	if challenger.IsSpade() && !current.IsSpade() {
		return true
	}
	if !challenger.IsSpade() && current.IsSpade() {
		return false
	}
	if challenger.IsSpade() && current.IsSpade() {
		return challenger.Value >= current.Value
	}

	challengerFollows := challenger.Suit == ledSuit
	currentFollows := current.Suit == ledSuit
	if challengerFollows && !currentFollows {
		return true
	}
	if challengerFollows && currentFollows {
		return challenger.Value >= current.Value
	}
	return false
}
