package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuitJSON(t *testing.T) {
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs, NoSuit} {
		b, err := json.Marshal(suit)
		require.NoError(t, err)

		var got Suit
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, suit, got)
	}

	var s Suit
	assert.Error(t, json.Unmarshal([]byte(`"swords"`), &s))
}

func TestRankJSON(t *testing.T) {
	for rank := Two; rank <= Ace; rank++ {
		b, err := json.Marshal(rank)
		require.NoError(t, err)

		var got Rank
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, rank, got)
	}

	var r Rank
	assert.Error(t, json.Unmarshal([]byte(`"1"`), &r))
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", NewCard(0, Spades, Ace, 0).String())
	assert.Equal(t, "10♥", NewCard(1, Hearts, Ten, 0).String())
	assert.Equal(t, "2♣", NewCard(2, Clubs, Two, 1).String())
}

func TestCardValueTracksRank(t *testing.T) {
	c := NewCard(5, Diamonds, Queen, 1)
	assert.Equal(t, int(Queen), c.Value)
	assert.Equal(t, 1, c.DeckNum)
	assert.False(t, c.IsSpade())
	assert.True(t, NewCard(6, Spades, Two, 0).IsSpade())
}
