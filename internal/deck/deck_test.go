package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDoubleDeck(t *testing.T) {
	cards := NewDoubleDeck()
	require.Len(t, cards, DoubleDeckSize)

	seenIDs := make(map[int]bool, DoubleDeckSize)
	seenFaces := make(map[string]int)
	for _, c := range cards {
		assert.False(t, seenIDs[c.ID], "duplicate id %d", c.ID)
		seenIDs[c.ID] = true
		assert.GreaterOrEqual(t, c.ID, 0)
		assert.Less(t, c.ID, DoubleDeckSize)
		seenFaces[c.String()]++
	}

	// Every (suit, rank) face appears exactly twice, once per physical deck.
	require.Len(t, seenFaces, 52)
	for face, count := range seenFaces {
		assert.Equal(t, 2, count, "face %s", face)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	cards := NewDoubleDeck()
	Shuffle(cards, NewRNG(42))

	require.Len(t, cards, DoubleDeckSize)
	seen := make(map[int]bool, DoubleDeckSize)
	for _, c := range cards {
		seen[c.ID] = true
	}
	assert.Len(t, seen, DoubleDeckSize)
}

func TestShuffleDeterministicBySeed(t *testing.T) {
	a := NewDoubleDeck()
	b := NewDoubleDeck()
	Shuffle(a, NewRNG(7))
	Shuffle(b, NewRNG(7))
	assert.Equal(t, a, b)

	c := NewDoubleDeck()
	Shuffle(c, NewRNG(8))
	assert.NotEqual(t, a, c)
}

func TestDeal(t *testing.T) {
	t.Run("deals n cards per player with no overlap", func(t *testing.T) {
		players := []string{"alice", "bob", "carol"}
		hands, err := Deal(players, 7, NewRNG(1))
		require.NoError(t, err)
		require.Len(t, hands, 3)

		seen := make(map[int]bool)
		for _, name := range players {
			require.Len(t, hands[name], 7)
			for _, c := range hands[name] {
				assert.False(t, seen[c.ID], "card %d dealt twice", c.ID)
				seen[c.ID] = true
			}
		}
	})

	t.Run("exhausting the deck exactly is fine", func(t *testing.T) {
		players := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
		hands, err := Deal(players, 13, NewRNG(1))
		require.NoError(t, err)
		total := 0
		for _, h := range hands {
			total += len(h)
		}
		assert.Equal(t, DoubleDeckSize, total)
	})

	t.Run("overdraw fails", func(t *testing.T) {
		players := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
		_, err := Deal(players, 14, NewRNG(1))
		require.Error(t, err)
	})
}

func TestSortHand(t *testing.T) {
	hand := []Card{
		NewCard(0, Clubs, Three, 0),
		NewCard(1, Spades, Two, 0),
		NewCard(2, Hearts, Ace, 0),
		NewCard(3, Spades, King, 1),
		NewCard(4, Diamonds, Ten, 0),
		NewCard(5, Hearts, Five, 1),
	}
	SortHand(hand)

	want := []string{"K♠", "2♠", "A♥", "5♥", "10♦", "3♣"}
	got := make([]string, len(hand))
	for i, c := range hand {
		got[i] = c.String()
	}
	assert.Equal(t, want, got)
}

func TestSortHandStableAcrossDecks(t *testing.T) {
	// The two copies of a card keep their dealt order.
	hand := []Card{
		NewCard(10, Hearts, Queen, 0),
		NewCard(62, Hearts, Queen, 1),
	}
	SortHand(hand)
	assert.Equal(t, 10, hand[0].ID)
	assert.Equal(t, 62, hand[1].ID)
}

func TestBeats(t *testing.T) {
	tests := []struct {
		name       string
		challenger Card
		current    Card
		ledSuit    Suit
		want       bool
	}{
		{
			name:       "spade trumps led suit",
			challenger: NewCard(0, Spades, Two, 0),
			current:    NewCard(1, Hearts, Ace, 0),
			ledSuit:    Hearts,
			want:       true,
		},
		{
			name:       "non-spade never beats a spade",
			challenger: NewCard(0, Hearts, Ace, 0),
			current:    NewCard(1, Spades, Two, 0),
			ledSuit:    Hearts,
			want:       false,
		},
		{
			name:       "higher spade beats lower spade",
			challenger: NewCard(0, Spades, King, 0),
			current:    NewCard(1, Spades, Queen, 0),
			ledSuit:    Clubs,
			want:       true,
		},
		{
			name:       "lower spade loses to higher spade",
			challenger: NewCard(0, Spades, Three, 0),
			current:    NewCard(1, Spades, Four, 0),
			ledSuit:    Clubs,
			want:       false,
		},
		{
			name:       "equal spades favor the later play",
			challenger: NewCard(60, Spades, Jack, 1),
			current:    NewCard(9, Spades, Jack, 0),
			ledSuit:    Hearts,
			want:       true,
		},
		{
			name:       "following beats an off-suit discard",
			challenger: NewCard(0, Diamonds, Two, 0),
			current:    NewCard(1, Clubs, Ace, 0),
			ledSuit:    Diamonds,
			want:       true,
		},
		{
			name:       "higher led-suit card wins",
			challenger: NewCard(0, Hearts, King, 0),
			current:    NewCard(1, Hearts, Ten, 0),
			ledSuit:    Hearts,
			want:       true,
		},
		{
			name:       "equal led-suit cards favor the later play",
			challenger: NewCard(55, Hearts, Nine, 1),
			current:    NewCard(3, Hearts, Nine, 0),
			ledSuit:    Hearts,
			want:       true,
		},
		{
			name:       "off-suit discard never wins",
			challenger: NewCard(0, Clubs, Ace, 0),
			current:    NewCard(1, Hearts, Two, 0),
			ledSuit:    Hearts,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Beats(tt.challenger, tt.current, tt.ledSuit))
		})
	}
}

// TestBeatsTransitive checks that the later-beats-current relation is
// transitive over every ordering of trump, led-suit, and off-suit cards,
// so the winner of a trick never depends on the fold order. The pool
// keeps both copies of each duplicate to cover the equal-card tie rule.
func TestBeatsTransitive(t *testing.T) {
	var pool []Card
	for _, c := range NewDoubleDeck() {
		switch {
		case c.Suit == Hearts || c.Suit == Spades:
			pool = append(pool, c)
		case c.Suit == Clubs && c.Rank <= Five:
			pool = append(pool, c)
		}
	}

	for _, a := range pool {
		for _, b := range pool {
			if !Beats(b, a, Hearts) {
				continue
			}
			for _, c := range pool {
				if Beats(c, b, Hearts) && !Beats(c, a, Hearts) {
					t.Fatalf("not transitive: %v beats %v and %v beats %v, but %v does not beat %v",
						b, a, c, b, c, a)
				}
			}
		}
	}
}
