// Package room tracks lobbies and their membership: room codes, players,
// ready state, team configuration, host transfer, and the
// disconnect/reconnect identity rules. The Manager guards the rooms table
// with a small critical section; each Room carries its own lock that the
// session layer holds for whole transitions.
package room

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lox/doubledeck/internal/game"
)

// Membership limits.
const (
	MinPlayers    = 2
	MaxPlayers    = 8
	MaxNameLength = 15
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNameTaken    = errors.New("name already taken")
	ErrNameInvalid  = errors.New("name must be 1-15 characters")
	ErrRoomFull     = errors.New("room is full")
	ErrGameStarted  = errors.New("game already started")
	ErrNotInRoom    = errors.New("player not in room")
	ErrUnknownTeam  = errors.New("unknown team")
)

// GameMode selects individual or team scoring
type GameMode string

const (
	ModeIndividual GameMode = "individual"
	ModeTeams      GameMode = "teams"
)

// Player is one seat in a room. ID is the current session handle and may
// change on reconnect; Name is the stable identity within the room.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// Room is a lobby plus, once started, its game.
type Room struct {
	Code      string
	HostID    string
	Mode      GameMode
	Players   []*Player
	Teams     map[string][]string
	TeamOrder []string
	Started   bool
	Game      *game.Game

	// mu is the per-room transition lock. The session layer acquires it
	// for every event that touches room or game state, including fan-out.
	mu sync.Mutex
}

// Lock acquires the room's transition lock
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's transition lock
func (r *Room) Unlock() { r.mu.Unlock() }

// TryLock attempts the transition lock without blocking. Used for
// play-card, where a contended lock means a concurrent attempt is already
// in flight and the later one must be rejected.
func (r *Room) TryLock() bool { return r.mu.TryLock() }

// PlayerByID finds a player by session handle
func (r *Room) PlayerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerByName finds a player by stable name
func (r *Room) PlayerByName(name string) *Player {
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PlayerNames returns the names in seating order
func (r *Room) PlayerNames() []string {
	names := make([]string, len(r.Players))
	for i, p := range r.Players {
		names[i] = p.Name
	}
	return names
}

// IsHost reports whether the session handle is the room host
func (r *Room) IsHost(id string) bool {
	return id != "" && id == r.HostID
}

// Join adds a player, or rebinds an existing disconnected player of the
// same name to a new session (reconnect). Reconnection is the only way
// into a started game.
func (r *Room) Join(sessionID, name string) (reconnected bool, err error) {
	if name == "" || len(name) > MaxNameLength {
		return false, ErrNameInvalid
	}

	if existing := r.PlayerByName(name); existing != nil {
		if existing.Connected {
			return false, ErrNameTaken
		}
		// Reconnect: the session handle changes, the name identity stays.
		// If the departed session was the host, the host badge follows.
		if r.HostID == existing.ID {
			r.HostID = sessionID
		}
		existing.ID = sessionID
		existing.Connected = true
		return true, nil
	}

	if r.Started {
		return false, ErrGameStarted
	}
	if len(r.Players) >= MaxPlayers {
		return false, ErrRoomFull
	}

	r.Players = append(r.Players, &Player{ID: sessionID, Name: name, Connected: true})
	return false, nil
}

// Leave handles a session departing. In the lobby the seat is removed and
// the host transfers; once a game has started the seat is retained
// disconnected so the player can reconnect by name. Returns whether the
// room is now empty of seats.
func (r *Room) Leave(sessionID string) (empty bool) {
	p := r.PlayerByID(sessionID)
	if p == nil {
		return len(r.Players) == 0
	}

	if r.Started {
		p.Connected = false
		return false
	}

	r.removeSeat(p.Name)
	if r.HostID == sessionID && len(r.Players) > 0 {
		r.HostID = r.Players[0].ID
	}
	return len(r.Players) == 0
}

// RemoveFromGame is an explicit mid-game departure: the seat goes away
// and, if a game is live, the player leaves the play order too.
func (r *Room) RemoveFromGame(sessionID string) (empty bool) {
	p := r.PlayerByID(sessionID)
	if p == nil {
		return len(r.Players) == 0
	}

	name := p.Name
	r.removeSeat(name)
	if r.Game != nil {
		r.Game.RemovePlayer(name)
	}
	if r.HostID == sessionID && len(r.Players) > 0 {
		r.HostID = r.Players[0].ID
	}
	return len(r.Players) == 0
}

func (r *Room) removeSeat(name string) {
	for i, p := range r.Players {
		if p.Name == name {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			break
		}
	}
	r.removeFromTeams(name)
}

// ToggleReady flips a player's ready flag
func (r *Room) ToggleReady(sessionID string) error {
	p := r.PlayerByID(sessionID)
	if p == nil {
		return ErrNotInRoom
	}
	p.Ready = !p.Ready
	return nil
}

// SetMode switches between individual and team play. Switching to teams
// seeds floor(players/2) empty teams; switching away clears them.
func (r *Room) SetMode(mode GameMode) {
	r.Mode = mode
	if mode == ModeTeams {
		r.initTeams(len(r.Players) / 2)
	} else {
		r.Teams = nil
		r.TeamOrder = nil
	}
}

// UpdateTeams re-seeds the team layout with the requested number of empty
// teams.
func (r *Room) UpdateTeams(numTeams int) {
	if r.Mode != ModeTeams {
		return
	}
	if numTeams < 1 {
		numTeams = 1
	}
	r.initTeams(numTeams)
}

func (r *Room) initTeams(numTeams int) {
	if numTeams < 2 {
		numTeams = 2
	}
	r.Teams = make(map[string][]string, numTeams)
	r.TeamOrder = make([]string, 0, numTeams)
	for i := 1; i <= numTeams; i++ {
		name := fmt.Sprintf("Team %d", i)
		r.Teams[name] = nil
		r.TeamOrder = append(r.TeamOrder, name)
	}
}

// AssignTeam places a player on a team, removing them from any other team
// first.
func (r *Room) AssignTeam(playerName, teamName string) error {
	if r.PlayerByName(playerName) == nil {
		return ErrNotInRoom
	}
	if _, ok := r.Teams[teamName]; !ok {
		return ErrUnknownTeam
	}
	r.removeFromTeams(playerName)
	r.Teams[teamName] = append(r.Teams[teamName], playerName)
	return nil
}

func (r *Room) removeFromTeams(playerName string) {
	for team, members := range r.Teams {
		for i, m := range members {
			if m == playerName {
				r.Teams[team] = append(members[:i], members[i+1:]...)
				break
			}
		}
	}
}

// CanStart validates the lobby against the start requirements: enough
// players and everyone ready, plus a balanced complete team layout in
// team mode.
func (r *Room) CanStart() error {
	if len(r.Players) < MinPlayers {
		return fmt.Errorf("need at least %d players", MinPlayers)
	}
	for _, p := range r.Players {
		if !p.Ready {
			return fmt.Errorf("%s is not ready", p.Name)
		}
	}
	if r.Mode != ModeTeams {
		return nil
	}

	if len(r.Players)%2 != 0 {
		return errors.New("team games need an even number of players")
	}
	assigned := make(map[string]int, len(r.Players))
	for _, members := range r.Teams {
		if len(members) == 0 {
			return errors.New("every team needs at least one player")
		}
		for _, m := range members {
			assigned[m]++
		}
	}
	for _, p := range r.Players {
		if assigned[p.Name] != 1 {
			return fmt.Errorf("%s must be assigned to exactly one team", p.Name)
		}
	}
	return nil
}

// Reset returns a finished or abandoned game to the lobby: the game is
// dropped and every ready flag cleared.
func (r *Room) Reset() {
	r.Started = false
	r.Game = nil
	for _, p := range r.Players {
		p.Ready = false
	}
}
