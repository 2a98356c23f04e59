package room

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/doubledeck/internal/deck"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := log.New(io.Discard)
	return NewManager(logger, deck.NewRNG(42))
}

func TestCreateRoom(t *testing.T) {
	m := newTestManager(t)

	r, err := m.CreateRoom("host-session", "alice", ModeIndividual)
	require.NoError(t, err)
	assert.NoError(t, ValidateCode(r.Code))
	assert.True(t, r.IsHost("host-session"))
	require.Len(t, r.Players, 1)
	assert.True(t, r.Players[0].Connected)
	assert.Equal(t, 1, m.RoomCount())

	t.Run("invalid host name", func(t *testing.T) {
		_, err := m.CreateRoom("s", "", ModeIndividual)
		assert.ErrorIs(t, err, ErrNameInvalid)
	})

	t.Run("team mode seeds two teams", func(t *testing.T) {
		r, err := m.CreateRoom("s2", "bob", ModeTeams)
		require.NoError(t, err)
		assert.Len(t, r.Teams, 2)
		assert.Equal(t, []string{"Team 1", "Team 2"}, r.TeamOrder)
	})
}

func TestCreateRoomUniqueCodes(t *testing.T) {
	m := newTestManager(t)
	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		r, err := m.CreateRoom("s", "alice", ModeIndividual)
		require.NoError(t, err)
		assert.False(t, codes[r.Code], "duplicate code %s", r.Code)
		codes[r.Code] = true
	}
}

func TestGetAndDeleteRoom(t *testing.T) {
	m := newTestManager(t)
	r, err := m.CreateRoom("s", "alice", ModeIndividual)
	require.NoError(t, err)

	got, ok := m.GetRoom(r.Code)
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = m.GetRoom("NOSUCH")
	assert.False(t, ok)

	m.DeleteRoom(r.Code)
	_, ok = m.GetRoom(r.Code)
	assert.False(t, ok)
	assert.Equal(t, 0, m.RoomCount())

	// Deleting twice is harmless.
	m.DeleteRoom(r.Code)
}

func TestFindPlayerRoom(t *testing.T) {
	m := newTestManager(t)
	r, err := m.CreateRoom("host", "alice", ModeIndividual)
	require.NoError(t, err)
	_, err = r.Join("guest", "bob")
	require.NoError(t, err)

	found, ok := m.FindPlayerRoom("guest")
	require.True(t, ok)
	assert.Same(t, r, found)

	_, ok = m.FindPlayerRoom("stranger")
	assert.False(t, ok)
}

func TestCodeGenerator(t *testing.T) {
	gen := NewCodeGenerator(deck.NewRNG(7))

	code := gen.Generate()
	assert.Len(t, code, CodeLength)
	assert.NoError(t, ValidateCode(code))

	t.Run("deterministic by source", func(t *testing.T) {
		a := NewCodeGenerator(deck.NewRNG(7)).Generate()
		b := NewCodeGenerator(deck.NewRNG(7)).Generate()
		assert.Equal(t, a, b)
	})

	t.Run("crypto fallback", func(t *testing.T) {
		code := NewCodeGenerator(nil).Generate()
		assert.NoError(t, ValidateCode(code))
	})
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("ABC234"))
	assert.Error(t, ValidateCode("ABC23"), "too short")
	assert.Error(t, ValidateCode("ABC2345"), "too long")
	assert.Error(t, ValidateCode("ABC10X"), "0 and 1 are excluded from the alphabet")
	assert.Error(t, ValidateCode("abc234"), "lowercase is excluded")
}
