// Package game implements the Spades state machine: dealing, the Nil
// prompt, bidding, trick play, and round scoring over a Game snapshot.
// The snapshot is a plain tree of values so it serializes to JSON and can
// be rehydrated without loss; all transitions are synchronous methods and
// the caller owns concurrency.
package game

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"

	"github.com/lox/doubledeck/internal/deck"
)

// Game length and Nil availability bounds.
const (
	FinalRound     = 11
	NilPromptRound = 10
)

// Phase represents the current stage of a round
type Phase int

const (
	PhaseNilPrompt Phase = iota
	PhaseBidding
	PhasePlaying
	PhaseRoundEnd
	PhaseGameOver
)

// String returns the wire name of a phase
func (p Phase) String() string {
	switch p {
	case PhaseNilPrompt:
		return "nilPrompt"
	case PhaseBidding:
		return "bidding"
	case PhasePlaying:
		return "playing"
	case PhaseRoundEnd:
		return "roundEnd"
	case PhaseGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the phase as its wire name
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a phase from its wire name
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for phase := PhaseNilPrompt; phase <= PhaseGameOver; phase++ {
		if phase.String() == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", name)
}

// NilChoice is the tri-state answer to the Nil prompt.
type NilChoice int

const (
	NilUndecided NilChoice = iota
	NilDeclared
	NilDeclined
)

// String returns the wire name of a nil choice
func (n NilChoice) String() string {
	switch n {
	case NilDeclared:
		return "nil"
	case NilDeclined:
		return "cards"
	default:
		return "undecided"
	}
}

// MarshalJSON serializes the choice as its wire name
func (n NilChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON parses a choice from its wire name
func (n *NilChoice) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "nil":
		*n = NilDeclared
	case "cards":
		*n = NilDeclined
	default:
		*n = NilUndecided
	}
	return nil
}

// PlayedCard is one entry of the current trick
type PlayedCard struct {
	Player string    `json:"player"`
	Card   deck.Card `json:"card"`
}

// RoundRecord is one row of a scoring unit's history
type RoundRecord struct {
	Round          int  `json:"round"`
	Bid            int  `json:"bid"`
	Nil            bool `json:"nil"`
	Tricks         int  `json:"tricks"`
	RoundScore     int  `json:"roundScore"`
	PenaltyApplied bool `json:"penaltyApplied"`
	TotalAfter     int  `json:"totalAfter"`
}

// Result identifies the winning unit of a finished game
type Result struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Type  string `json:"type"`
}

// Game is the full snapshot of one game in progress. Player names are the
// identity keys throughout; session IDs live at the room layer and may
// change across reconnects.
type Game struct {
	CurrentRound       int      `json:"currentRound"`
	Phase              Phase    `json:"phase"`
	PlayerOrder        []string `json:"playerOrder"`
	DealerIndex        int      `json:"dealerIndex"`
	BiddingStartIndex  int      `json:"biddingStartIndex"`
	FirstLeadIndex     int      `json:"firstLeadIndex"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`

	Hands           map[string][]deck.Card `json:"hands"`
	Bids            map[string]int         `json:"bids"`
	NilBids         map[string]NilChoice   `json:"nilBids"`
	TricksWon       map[string]int         `json:"tricksWon"`
	CurrentTrick    []PlayedCard           `json:"currentTrick"`
	TrickNumber     int                    `json:"trickNumber"`
	LedSuit         deck.Suit              `json:"ledSuit"`
	SpadesBroken    bool                   `json:"spadesBroken"`
	LastTrickWinner string                 `json:"lastTrickWinner"`

	Scores       map[string]int           `json:"scores"`
	OvertrickBag map[string]int           `json:"overtrickBag"`
	RoundHistory map[string][]RoundRecord `json:"roundHistory"`

	// Team mirrors; empty in individual mode.
	Teams            map[string][]string      `json:"teams,omitempty"`
	TeamOrder        []string                 `json:"teamOrder,omitempty"`
	TeamScores       map[string]int           `json:"teamScores,omitempty"`
	TeamOvertrickBag map[string]int           `json:"teamOvertrickBag,omitempty"`
	TeamRoundHistory map[string][]RoundRecord `json:"teamRoundHistory,omitempty"`

	GameOver bool    `json:"gameOver"`
	Winner   *Result `json:"winner,omitempty"`

	rng *rand.Rand
}

// New creates a game over a fixed cyclic player order. For team games,
// teams maps team name to member names and teamOrder fixes the scoring
// and tie-break order; both are nil for individual play. The caller must
// invoke StartRound to deal round one.
func New(playerOrder []string, teams map[string][]string, teamOrder []string, rng *rand.Rand) *Game {
	g := &Game{
		CurrentRound: 1,
		PlayerOrder:  append([]string(nil), playerOrder...),
		LedSuit:      deck.NoSuit,
		Scores:       make(map[string]int, len(playerOrder)),
		OvertrickBag: make(map[string]int, len(playerOrder)),
		RoundHistory: make(map[string][]RoundRecord, len(playerOrder)),
		rng:          rng,
	}
	for _, name := range playerOrder {
		g.Scores[name] = 0
		g.OvertrickBag[name] = 0
	}
	if len(teams) > 0 {
		g.Teams = make(map[string][]string, len(teams))
		for team, members := range teams {
			g.Teams[team] = append([]string(nil), members...)
		}
		g.TeamOrder = append([]string(nil), teamOrder...)
		g.TeamScores = make(map[string]int, len(teams))
		g.TeamOvertrickBag = make(map[string]int, len(teams))
		g.TeamRoundHistory = make(map[string][]RoundRecord, len(teams))
		for _, team := range g.TeamOrder {
			g.TeamScores[team] = 0
			g.TeamOvertrickBag[team] = 0
		}
	}
	return g
}

// SetRNG attaches the shuffle RNG, for rehydrated snapshots and tests.
func (g *Game) SetRNG(rng *rand.Rand) {
	g.rng = rng
}

// TeamMode reports whether the game scores by team
func (g *Game) TeamMode() bool {
	return len(g.Teams) > 0
}

// CurrentPlayer returns the name of the player expected to act
func (g *Game) CurrentPlayer() string {
	if len(g.PlayerOrder) == 0 {
		return ""
	}
	return g.PlayerOrder[g.CurrentPlayerIndex]
}

// HasBid reports whether a player's bid has been placed (or fixed by Nil)
func (g *Game) HasBid(name string) bool {
	_, ok := g.Bids[name]
	return ok
}

// Hand returns a player's current hand
func (g *Game) Hand(name string) []deck.Card {
	return g.Hands[name]
}

// HasPlayer reports whether a name is part of the play order
func (g *Game) HasPlayer(name string) bool {
	return g.playerIndex(name) >= 0
}

func (g *Game) playerIndex(name string) int {
	for i, p := range g.PlayerOrder {
		if p == name {
			return i
		}
	}
	return -1
}

// RemovePlayer drops a player from the cyclic order mid-game. Their dealt
// cards leave play with them, including a card already committed to the
// current trick, so the trick can never resolve in a departed player's
// favor. Turn and lead indexes are re-pointed at the surviving players,
// and a prompt or bidding phase waiting only on the departed player moves
// forward.
func (g *Game) RemovePlayer(name string) {
	idx := g.playerIndex(name)
	if idx < 0 {
		return
	}
	g.PlayerOrder = append(g.PlayerOrder[:idx], g.PlayerOrder[idx+1:]...)
	delete(g.Hands, name)
	if len(g.PlayerOrder) == 0 {
		g.CurrentPlayerIndex = 0
		return
	}

	for i, played := range g.CurrentTrick {
		if played.Player == name {
			g.CurrentTrick = append(g.CurrentTrick[:i], g.CurrentTrick[i+1:]...)
			break
		}
	}
	if len(g.CurrentTrick) == 0 && g.Phase == PhasePlaying {
		g.LedSuit = deck.NoSuit
	}

	g.CurrentPlayerIndex = g.shiftIndex(g.CurrentPlayerIndex, idx)
	g.DealerIndex = g.shiftIndex(g.DealerIndex, idx)
	g.BiddingStartIndex = g.shiftIndex(g.BiddingStartIndex, idx)
	g.FirstLeadIndex = g.shiftIndex(g.FirstLeadIndex, idx)

	switch g.Phase {
	case PhaseNilPrompt:
		for _, p := range g.PlayerOrder {
			if g.NilBids[p] == NilUndecided {
				return
			}
		}
		g.Phase = PhaseBidding
		g.advanceBidding()
	case PhaseBidding:
		g.advanceBidding()
	}
}

// shiftIndex re-points a seat index after the seat at removed left the
// order.
func (g *Game) shiftIndex(i, removed int) int {
	if removed < i {
		i--
	}
	if i >= len(g.PlayerOrder) {
		i = 0
	}
	return i
}
