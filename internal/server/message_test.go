package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/doubledeck/internal/deck"
	"github.com/lox/doubledeck/internal/game"
	"github.com/lox/doubledeck/internal/room"
)

func TestGameStateForPlayer(t *testing.T) {
	g := game.New([]string{"alice", "bob", "carol"}, nil, nil, deck.NewRNG(1))
	g.CurrentRound = 5
	require.NoError(t, g.StartRound())

	state := GameStateForPlayer(g, "alice")
	assert.Len(t, state.Hand, 5, "own hand is visible in full")
	assert.Equal(t, map[string]int{"bob": 5, "carol": 5}, state.OtherHandCounts)
	assert.NotContains(t, state.OtherHandCounts, "alice")
	assert.Equal(t, g.CurrentPlayer(), state.CurrentPlayer)
	assert.Equal(t, game.PhaseBidding, state.Phase)
}

func TestGameStateHidesHandDuringNilPrompt(t *testing.T) {
	g := game.New([]string{"alice", "bob"}, nil, nil, deck.NewRNG(2))
	g.CurrentRound = 10
	require.NoError(t, g.StartRound())
	require.Equal(t, game.PhaseNilPrompt, g.Phase)

	// The Nil decision is made blind: no cards until the player answers.
	state := GameStateForPlayer(g, "alice")
	assert.Empty(t, state.Hand)
	assert.Equal(t, map[string]int{"bob": 10}, state.OtherHandCounts)

	require.NoError(t, g.NilDecision("alice", false))
	state = GameStateForPlayer(g, "alice")
	assert.Len(t, state.Hand, 10)

	state = GameStateForPlayer(g, "bob")
	assert.Empty(t, state.Hand, "an undecided player stays blind")
}

func TestGameStateCopiesHand(t *testing.T) {
	g := game.New([]string{"alice", "bob"}, nil, nil, deck.NewRNG(3))
	require.NoError(t, g.StartRound())

	state := GameStateForPlayer(g, "alice")
	require.Len(t, state.Hand, 1)
	state.Hand[0].ID = -1
	assert.NotEqual(t, -1, g.Hands["alice"][0].ID, "mutating the snapshot never touches the game")
}

func TestRoomUpdateFromRoom(t *testing.T) {
	r := &room.Room{Code: "ABCDEF", HostID: "s1", Mode: room.ModeIndividual}
	_, err := r.Join("s1", "alice")
	require.NoError(t, err)
	_, err = r.Join("s2", "bob")
	require.NoError(t, err)
	r.PlayerByName("bob").Ready = true

	update := RoomUpdateFromRoom(r)
	assert.Equal(t, "ABCDEF", update.RoomCode)
	assert.Equal(t, "individual", update.GameMode)
	require.Len(t, update.Players, 2)
	assert.True(t, update.Players[0].IsHost)
	assert.False(t, update.Players[1].IsHost)
	assert.True(t, update.Players[1].Ready)
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(MessageTypeAck, AckData{Success: true, RoomCode: "ABCDEF"})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeAck, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
	assert.JSONEq(t, `{"success":true,"roomCode":"ABCDEF"}`, string(msg.Data))

	empty, err := NewMessage(MessageTypeGameEnded, nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Data)
}
