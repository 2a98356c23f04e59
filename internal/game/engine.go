package game

import (
	"errors"
	"fmt"

	"github.com/lox/doubledeck/internal/deck"
	"github.com/lox/doubledeck/internal/scoring"
)

var (
	ErrWrongPhase     = errors.New("action not valid in current phase")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrUnknownPlayer  = errors.New("player not in game")
	ErrAlreadyDecided = errors.New("nil decision already made")
	ErrNilBidFixed    = errors.New("nil bidders cannot place a bid")
	ErrInvalidBid     = errors.New("bid out of range")
	ErrCardNotHeld    = errors.New("card not in hand")
	ErrMustFollowSuit = errors.New("must follow the led suit")
	ErrTrickNotFull   = errors.New("trick is not complete")
)

// PlayResult reports what a successful card play left behind
type PlayResult int

const (
	// PlayAdvanced means the turn moved to the next player.
	PlayAdvanced PlayResult = iota
	// PlayTrickComplete means every player has played and the caller
	// should schedule ResolveTrick.
	PlayTrickComplete
)

// TrickOutcome reports the result of a resolved trick
type TrickOutcome struct {
	Winner        string
	WinningCard   deck.Card
	Trick         []PlayedCard
	RoundComplete bool
}

// StartRound deals CurrentRound cards to every player and resets all
// per-round state. The dealer rotates by round number; bidding starts
// left of the dealer; the first lead is the previous round's last trick
// winner, falling back to the first bidder. Rounds 10 and 11 open with
// the Nil prompt, earlier rounds go straight to bidding.
func (g *Game) StartRound() error {
	n := len(g.PlayerOrder)
	if n == 0 {
		return errors.New("no players")
	}

	hands, err := deck.Deal(g.PlayerOrder, g.CurrentRound, g.rng)
	if err != nil {
		return fmt.Errorf("deal round %d: %w", g.CurrentRound, err)
	}
	for _, hand := range hands {
		deck.SortHand(hand)
	}
	g.Hands = hands

	g.Bids = make(map[string]int, n)
	g.NilBids = make(map[string]NilChoice, n)
	g.TricksWon = make(map[string]int, n)
	for _, name := range g.PlayerOrder {
		g.TricksWon[name] = 0
	}
	g.CurrentTrick = nil
	g.TrickNumber = 0
	g.LedSuit = deck.NoSuit
	g.SpadesBroken = false

	g.DealerIndex = (g.CurrentRound - 1) % n
	g.BiddingStartIndex = (g.DealerIndex + 1) % n
	g.FirstLeadIndex = g.BiddingStartIndex
	if idx := g.playerIndex(g.LastTrickWinner); idx >= 0 {
		g.FirstLeadIndex = idx
	}

	if g.CurrentRound >= NilPromptRound {
		g.Phase = PhaseNilPrompt
		for _, name := range g.PlayerOrder {
			g.NilBids[name] = NilUndecided
		}
		g.CurrentPlayerIndex = g.BiddingStartIndex
	} else {
		g.Phase = PhaseBidding
		for _, name := range g.PlayerOrder {
			g.NilBids[name] = NilDeclined
		}
		g.CurrentPlayerIndex = g.BiddingStartIndex
	}
	return nil
}

// NilDecision records a player's answer to the Nil prompt. Declaring Nil
// fixes their bid at zero. Once every player has decided the game moves
// to bidding, skipping Nil bidders.
func (g *Game) NilDecision(player string, goNil bool) error {
	if g.Phase != PhaseNilPrompt {
		return ErrWrongPhase
	}
	if !g.HasPlayer(player) {
		return ErrUnknownPlayer
	}
	if g.NilBids[player] != NilUndecided {
		return ErrAlreadyDecided
	}

	if goNil {
		g.NilBids[player] = NilDeclared
		g.Bids[player] = 0
	} else {
		g.NilBids[player] = NilDeclined
	}

	for _, name := range g.PlayerOrder {
		if g.NilBids[name] == NilUndecided {
			return nil
		}
	}
	g.Phase = PhaseBidding
	g.advanceBidding()
	return nil
}

// PlaceBid records the current player's bid for the round. Bids are
// bounded by the number of tricks in the round; the sum of bids is
// deliberately unrestricted.
func (g *Game) PlaceBid(player string, bid int) error {
	if g.Phase != PhaseBidding {
		return ErrWrongPhase
	}
	if !g.HasPlayer(player) {
		return ErrUnknownPlayer
	}
	if g.CurrentPlayer() != player {
		return ErrNotYourTurn
	}
	if g.NilBids[player] == NilDeclared {
		return ErrNilBidFixed
	}
	if bid < 0 || bid > g.CurrentRound {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidBid, bid, g.CurrentRound)
	}

	g.Bids[player] = bid
	g.advanceBidding()
	return nil
}

// advanceBidding moves the turn to the next player without a bid,
// starting the play phase when everyone is committed.
func (g *Game) advanceBidding() {
	n := len(g.PlayerOrder)
	for offset := 0; offset < n; offset++ {
		idx := (g.BiddingStartIndex + offset) % n
		if !g.HasBid(g.PlayerOrder[idx]) {
			g.CurrentPlayerIndex = idx
			return
		}
	}
	g.beginPlaying()
}

func (g *Game) beginPlaying() {
	g.Phase = PhasePlaying
	g.TrickNumber = 0
	g.CurrentTrick = nil
	g.LedSuit = deck.NoSuit
	g.CurrentPlayerIndex = g.FirstLeadIndex
}

// PlayCard moves a card from the current player's hand into the trick.
// Leading any card is legal, spades included; followers must follow the
// led suit when they hold it. Illegal plays leave the game unchanged.
func (g *Game) PlayCard(player string, cardID int) (PlayResult, error) {
	if g.Phase != PhasePlaying {
		return 0, ErrWrongPhase
	}
	if !g.HasPlayer(player) {
		return 0, ErrUnknownPlayer
	}
	if g.CurrentPlayer() != player {
		return 0, ErrNotYourTurn
	}

	hand := g.Hands[player]
	cardIdx := -1
	for i, c := range hand {
		if c.ID == cardID {
			cardIdx = i
			break
		}
	}
	if cardIdx < 0 {
		return 0, ErrCardNotHeld
	}
	card := hand[cardIdx]

	if len(g.CurrentTrick) > 0 && !g.followsSuit(hand, card) {
		return 0, ErrMustFollowSuit
	}

	g.Hands[player] = append(hand[:cardIdx], hand[cardIdx+1:]...)
	g.CurrentTrick = append(g.CurrentTrick, PlayedCard{Player: player, Card: card})
	if len(g.CurrentTrick) == 1 {
		g.LedSuit = card.Suit
	}
	if card.IsSpade() {
		g.SpadesBroken = true
	}

	if len(g.CurrentTrick) == len(g.PlayerOrder) {
		return PlayTrickComplete, nil
	}
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.PlayerOrder)
	return PlayAdvanced, nil
}

// followsSuit reports whether playing card is consistent with the
// follow-suit rule given the player's full hand.
func (g *Game) followsSuit(hand []deck.Card, card deck.Card) bool {
	if card.Suit == g.LedSuit {
		return true
	}
	for _, c := range hand {
		if c.Suit == g.LedSuit {
			return false
		}
	}
	return true
}

// FirstLegalCardID returns the first card in the player's hand that the
// follow-suit rule allows, used when auto-playing for a disconnected
// player.
func (g *Game) FirstLegalCardID(player string) (int, bool) {
	hand := g.Hands[player]
	for _, c := range hand {
		if len(g.CurrentTrick) == 0 || g.followsSuit(hand, c) {
			return c.ID, true
		}
	}
	return 0, false
}

// ResolveTrick reduces the completed trick to a winner. The winner leads
// the next trick; when the round's tricks are exhausted the caller should
// schedule ResolveRound. On round completion the trick is left visible
// for the final broadcast.
func (g *Game) ResolveTrick() (TrickOutcome, error) {
	if g.Phase != PhasePlaying {
		return TrickOutcome{}, ErrWrongPhase
	}
	if len(g.CurrentTrick) != len(g.PlayerOrder) || len(g.CurrentTrick) == 0 {
		return TrickOutcome{}, ErrTrickNotFull
	}

	winning := g.CurrentTrick[0]
	for _, played := range g.CurrentTrick[1:] {
		if deck.Beats(played.Card, winning.Card, g.LedSuit) {
			winning = played
		}
	}

	g.TricksWon[winning.Player]++
	g.LastTrickWinner = winning.Player
	g.TrickNumber++

	outcome := TrickOutcome{
		Winner:      winning.Player,
		WinningCard: winning.Card,
		Trick:       append([]PlayedCard(nil), g.CurrentTrick...),
	}

	if g.TrickNumber == g.CurrentRound {
		outcome.RoundComplete = true
		return outcome, nil
	}

	g.CurrentTrick = nil
	g.LedSuit = deck.NoSuit
	if idx := g.playerIndex(winning.Player); idx >= 0 {
		g.CurrentPlayerIndex = idx
	}
	return outcome, nil
}

// ResolveRound scores the finished round for every unit, records history
// rows, and either advances to the next round's deal trigger or ends the
// game after the final round.
func (g *Game) ResolveRound() error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if g.TrickNumber != g.CurrentRound {
		return ErrTrickNotFull
	}

	g.CurrentTrick = nil
	g.LedSuit = deck.NoSuit

	for _, name := range g.PlayerOrder {
		tricks := g.TricksWon[name]
		isNil := g.NilBids[name] == NilDeclared

		var score, overtricks int
		if isNil {
			score = scoring.NilScore(tricks)
		} else {
			score, overtricks = scoring.RoundScore(g.Bids[name], tricks)
		}
		g.OvertrickBag[name] += overtricks

		newTotal, penalized := scoring.ApplyRound(g.Scores[name], score)
		g.Scores[name] = newTotal
		g.RoundHistory[name] = append(g.RoundHistory[name], RoundRecord{
			Round:          g.CurrentRound,
			Bid:            g.Bids[name],
			Nil:            isNil,
			Tricks:         tricks,
			RoundScore:     score,
			PenaltyApplied: penalized,
			TotalAfter:     newTotal,
		})
	}

	if g.TeamMode() {
		g.resolveTeamRound()
	}

	if g.CurrentRound == FinalRound {
		g.Phase = PhaseGameOver
		g.GameOver = true
		g.Winner = g.computeWinner()
		return nil
	}

	g.Phase = PhaseRoundEnd
	g.CurrentRound++
	return nil
}

// resolveTeamRound aggregates the round at team level: non-nil bids and
// tricks sum into one team bid scored with the usual formula, and each
// Nil member's outcome is added on top. Only team totals drive winning;
// the individual rows above remain for display.
func (g *Game) resolveTeamRound() {
	for _, team := range g.TeamOrder {
		var teamBid, teamTricks, nilScore int
		for _, member := range g.Teams[team] {
			if g.NilBids[member] == NilDeclared {
				nilScore += scoring.NilScore(g.TricksWon[member])
				continue
			}
			teamBid += g.Bids[member]
			teamTricks += g.TricksWon[member]
		}

		score, overtricks := scoring.RoundScore(teamBid, teamTricks)
		score += nilScore
		g.TeamOvertrickBag[team] += overtricks

		newTotal, penalized := scoring.ApplyRound(g.TeamScores[team], score)
		g.TeamScores[team] = newTotal
		g.TeamRoundHistory[team] = append(g.TeamRoundHistory[team], RoundRecord{
			Round:          g.CurrentRound,
			Bid:            teamBid,
			Tricks:         teamTricks,
			RoundScore:     score,
			PenaltyApplied: penalized,
			TotalAfter:     newTotal,
		})
	}
}

func (g *Game) computeWinner() *Result {
	if g.TeamMode() {
		name, score := scoring.BestUnit(g.TeamOrder, g.TeamScores)
		return &Result{Name: name, Score: score, Type: "team"}
	}
	name, score := scoring.BestUnit(g.PlayerOrder, g.Scores)
	return &Result{Name: name, Score: score, Type: "player"}
}

// NextRound deals the following round after a RoundEnd pause. The round
// counter was already advanced by ResolveRound.
func (g *Game) NextRound() error {
	if g.Phase != PhaseRoundEnd {
		return ErrWrongPhase
	}
	return g.StartRound()
}
