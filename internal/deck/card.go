package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit int

const (
	// NoSuit is the sentinel for "no suit led yet" in trick state.
	NoSuit Suit = iota - 1
	Spades
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Name returns the lowercase wire name of a suit
func (s Suit) Name() string {
	switch s {
	case Spades:
		return "spades"
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	default:
		return ""
	}
}

// MarshalJSON serializes the suit as its wire name
func (s Suit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name())
}

// UnmarshalJSON parses a suit from its wire name
func (s *Suit) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "spades":
		*s = Spades
	case "hearts":
		*s = Hearts
	case "diamonds":
		*s = Diamonds
	case "clubs":
		*s = Clubs
	case "":
		*s = NoSuit
	default:
		return fmt.Errorf("unknown suit %q", name)
	}
	return nil
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank. The numeric value doubles as the
// comparison value: aces are high (14).
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Ten:
		return "10"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// MarshalJSON serializes the rank as its display string
func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a rank from its display string
func (r *Rank) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for rank := Two; rank <= Ace; rank++ {
		if rank.String() == name {
			*r = rank
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", name)
}

// Card represents a playing card from a double deck. Two physical decks
// are in play, so (Suit, Rank) alone is not unique; ID distinguishes the
// duplicates and is stable for the lifetime of a deal.
type Card struct {
	ID      int  `json:"id"`
	Suit    Suit `json:"suit"`
	Rank    Rank `json:"rank"`
	Value   int  `json:"value"`
	DeckNum int  `json:"deckNum"`
}

// NewCard creates a new card
func NewCard(id int, suit Suit, rank Rank, deckNum int) Card {
	return Card{ID: id, Suit: suit, Rank: rank, Value: int(rank), DeckNum: deckNum}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsSpade returns true if the card is a spade
func (c Card) IsSpade() bool {
	return c.Suit == Spades
}
