package deck

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	rand "math/rand/v2"
	"sort"
)

// DoubleDeckSize is the number of cards in play: two full 52-card decks.
const DoubleDeckSize = 104

const goldenRatio64 = 0x9e3779b97f4a7c15

// NewRNG returns a *rand.Rand seeded deterministically from the provided
// int64. It centralises how the two 64-bit seeds required by rand/v2 are
// derived so that all call sites get reproducible sequences.
func NewRNG(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewCryptoSeededRNG returns a *rand.Rand seeded from crypto/rand, for
// production shuffles where reproducibility is not wanted.
func NewCryptoSeededRNG() *rand.Rand {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("failed to read random seed: " + err.Error())
	}
	return NewRNG(int64(binary.LittleEndian.Uint64(buf[:])))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// NewDoubleDeck builds the 104-card double deck. Card IDs run 0..103,
// grouped by deck number so the same (suit, rank) appears exactly twice
// with distinct IDs.
func NewDoubleDeck() []Card {
	cards := make([]Card, 0, DoubleDeckSize)
	id := 0
	for deckNum := 0; deckNum < 2; deckNum++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				cards = append(cards, NewCard(id, suit, rank, deckNum))
				id++
			}
		}
	}
	return cards
}

// Shuffle randomizes the order of cards in place using Fisher-Yates.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Deal shuffles a fresh double deck and deals n cards to each player in
// order, as consecutive blocks off the top. It fails when the deck cannot
// cover the request.
func Deal(playerOrder []string, n int, rng *rand.Rand) (map[string][]Card, error) {
	if need := n * len(playerOrder); need > DoubleDeckSize {
		return nil, fmt.Errorf("cannot deal %d cards to %d players: %d > %d", n, len(playerOrder), need, DoubleDeckSize)
	}

	cards := NewDoubleDeck()
	Shuffle(cards, rng)

	hands := make(map[string][]Card, len(playerOrder))
	for i, name := range playerOrder {
		hand := make([]Card, n)
		copy(hand, cards[i*n:(i+1)*n])
		hands[name] = hand
	}
	return hands, nil
}

// suitDisplayOrder maps suits to their display position: spades first,
// then hearts, diamonds, clubs.
var suitDisplayOrder = map[Suit]int{
	Spades:   0,
	Hearts:   1,
	Diamonds: 2,
	Clubs:    3,
}

// SortHand orders a hand for display: suits in spades-hearts-diamonds-clubs
// order, descending by value within a suit. The sort is stable so the two
// copies of a card keep their dealt order.
func SortHand(hand []Card) {
	sort.SliceStable(hand, func(i, j int) bool {
		if hand[i].Suit != hand[j].Suit {
			return suitDisplayOrder[hand[i].Suit] < suitDisplayOrder[hand[j].Suit]
		}
		return hand[i].Value > hand[j].Value
	})
}
