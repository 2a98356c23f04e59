package server

import (
	"errors"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/doubledeck/internal/deck"
	"github.com/lox/doubledeck/internal/game"
	"github.com/lox/doubledeck/internal/room"
)

// sender delivers messages to sessions. The websocket Server implements
// it; tests substitute a recorder.
type sender interface {
	SendToSession(sessionID string, msg *Message) error
}

// Pacing holds the animation delays between game transitions. State is
// consistent at every lock acquisition regardless of these values.
type Pacing struct {
	TrickSettle     time.Duration
	TrickClear      time.Duration
	RoundEnd        time.Duration
	DisconnectGrace time.Duration
	TurnCheck       time.Duration
}

// Orchestrator binds client events to the room manager and game engine
// under per-room serialization, fans out per-player snapshots, and runs
// the scheduled trick/round settlement and disconnect auto-progress.
//
// Every transition acquires the room's lock for its whole duration,
// including fan-out. Scheduled callbacks reference rooms by code and
// re-look them up under the lock, so callbacks that outlive their room
// become no-ops.
type Orchestrator struct {
	rooms  *room.Manager
	send   sender
	clock  quartz.Clock
	pacing Pacing
	logger *log.Logger
	newRNG func() *rand.Rand
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(rooms *room.Manager, send sender, clock quartz.Clock, pacing Pacing, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		rooms:  rooms,
		send:   send,
		clock:  clock,
		pacing: pacing,
		logger: logger.WithPrefix("orchestrator"),
		newRNG: deck.NewCryptoSeededRNG,
	}
}

// SetRNGFactory overrides how per-game shuffle RNGs are created, for
// deterministic tests.
func (o *Orchestrator) SetRNGFactory(f func() *rand.Rand) {
	o.newRNG = f
}

// CreateRoom creates a room hosted by the calling session.
func (o *Orchestrator) CreateRoom(sessionID, playerName, gameMode string) (string, error) {
	mode := room.ModeIndividual
	if gameMode == string(room.ModeTeams) {
		mode = room.ModeTeams
	}

	r, err := o.rooms.CreateRoom(sessionID, playerName, mode)
	if err != nil {
		return "", err
	}

	r.Lock()
	defer r.Unlock()
	o.broadcastRoom(r)
	return r.Code, nil
}

// JoinRoom joins a session into a room, or rebinds a disconnected player
// of the same name (reconnect). Reconnecting players immediately receive
// the current room and game snapshots.
func (o *Orchestrator) JoinRoom(sessionID, code, playerName string) (bool, error) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return false, room.ErrRoomNotFound
	}

	r.Lock()
	defer r.Unlock()

	reconnected, err := r.Join(sessionID, playerName)
	if err != nil {
		return false, err
	}

	o.logger.Info("player joined", "room", code, "player", playerName, "reconnected", reconnected)
	o.broadcastRoom(r)
	if r.Game != nil {
		o.broadcastGameState(r)
	}
	return reconnected, nil
}

// ToggleReady flips the calling player's ready flag
func (o *Orchestrator) ToggleReady(sessionID, code string) {
	o.withRoom(code, func(r *room.Room) {
		if r.Started {
			return
		}
		if err := r.ToggleReady(sessionID); err != nil {
			return
		}
		o.broadcastRoom(r)
	})
}

// SetGameMode switches the lobby between individual and team play
func (o *Orchestrator) SetGameMode(sessionID, code, gameMode string) {
	o.withRoom(code, func(r *room.Room) {
		if r.Started || r.PlayerByID(sessionID) == nil {
			return
		}
		mode := room.ModeIndividual
		if gameMode == string(room.ModeTeams) {
			mode = room.ModeTeams
		}
		r.SetMode(mode)
		o.broadcastRoom(r)
	})
}

// AssignTeam places a named player on a team
func (o *Orchestrator) AssignTeam(sessionID, code, playerName, teamName string) {
	o.withRoom(code, func(r *room.Room) {
		if r.Started || r.PlayerByID(sessionID) == nil {
			return
		}
		if err := r.AssignTeam(playerName, teamName); err != nil {
			return
		}
		o.broadcastRoom(r)
	})
}

// UpdateTeams re-seeds the lobby's team layout
func (o *Orchestrator) UpdateTeams(sessionID, code string, numTeams int) {
	o.withRoom(code, func(r *room.Room) {
		if r.Started || r.PlayerByID(sessionID) == nil {
			return
		}
		r.UpdateTeams(numTeams)
		o.broadcastRoom(r)
	})
}

// LeaveRoom handles an explicit leave. In the lobby the seat is removed;
// mid-game the player is only marked disconnected so they can rejoin.
func (o *Orchestrator) LeaveRoom(sessionID, code string) {
	o.withRoom(code, func(r *room.Room) {
		started := r.Started
		empty := r.Leave(sessionID)
		if empty {
			o.rooms.DeleteRoom(code)
			return
		}
		o.broadcastRoom(r)
		if started {
			o.scheduleTurnCheck(code, o.pacing.DisconnectGrace)
		}
	})
}

// LeaveGame removes the player from a running game entirely: their seat
// and their place in the play order go away. When everyone else had
// already played into the trick, the departure completes it and the
// settle timer is armed here, since no further play will arrive to do it.
func (o *Orchestrator) LeaveGame(sessionID, code string) {
	o.withRoom(code, func(r *room.Room) {
		empty := r.RemoveFromGame(sessionID)
		if empty {
			o.rooms.DeleteRoom(code)
			return
		}
		o.broadcastRoom(r)
		g := r.Game
		if g == nil || g.GameOver {
			return
		}
		o.broadcastGameState(r)
		if g.Phase == game.PhasePlaying && len(g.CurrentTrick) > 0 && len(g.CurrentTrick) == len(g.PlayerOrder) {
			o.clock.AfterFunc(o.pacing.TrickSettle, func() { o.settleTrick(code) })
			return
		}
		o.scheduleTurnCheck(code, o.pacing.TurnCheck)
	})
}

// StartGame creates the game and deals round one. Host-only; a request
// from anyone else is silently ignored.
func (o *Orchestrator) StartGame(sessionID, code string) error {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return room.ErrRoomNotFound
	}

	r.Lock()
	defer r.Unlock()

	if !r.IsHost(sessionID) || r.Started {
		return nil
	}
	if err := r.CanStart(); err != nil {
		return err
	}

	var teams map[string][]string
	var teamOrder []string
	if r.Mode == room.ModeTeams {
		teams = r.Teams
		teamOrder = r.TeamOrder
	}

	g := game.New(r.PlayerNames(), teams, teamOrder, o.newRNG())
	if err := g.StartRound(); err != nil {
		return err
	}
	r.Game = g
	r.Started = true

	o.logger.Info("game started", "room", code, "players", len(r.Players), "mode", r.Mode)
	o.broadcastRoom(r)
	o.broadcastGameState(r)
	return nil
}

// NilDecision records a player's answer to the Nil prompt. Stale or
// out-of-phase events are dropped.
func (o *Orchestrator) NilDecision(sessionID, code string, goNil bool) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		name, ok := o.playerName(r, sessionID)
		if !ok {
			return
		}
		if err := g.NilDecision(name, goNil); err != nil {
			return
		}
		o.broadcastGameState(r)
		o.scheduleTurnCheck(code, o.pacing.TurnCheck)
	})
}

// PlaceBid records the caller's bid. Out-of-range bids bounce back as
// invalid-play; out-of-turn or out-of-phase bids are stale and dropped.
func (o *Orchestrator) PlaceBid(sessionID, code string, bid int) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		name, ok := o.playerName(r, sessionID)
		if !ok {
			return
		}
		err := g.PlaceBid(name, bid)
		switch {
		case err == nil:
			o.broadcastGameState(r)
			o.scheduleTurnCheck(code, o.pacing.TurnCheck)
		case errors.Is(err, game.ErrInvalidBid):
			o.sendInvalidPlay(sessionID, err.Error())
		}
	})
}

// PlayCard plays a card for the caller. The room lock is only tried, not
// awaited: a second play arriving while one is in flight is rejected so
// rapid double clicks cannot double-play.
func (o *Orchestrator) PlayCard(sessionID, code string, cardID int) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	if !r.TryLock() {
		o.sendInvalidPlay(sessionID, "another play is already being processed")
		return
	}
	defer r.Unlock()

	g := r.Game
	if g == nil {
		return
	}
	name, ok := o.playerName(r, sessionID)
	if !ok {
		return
	}

	result, err := g.PlayCard(name, cardID)
	switch {
	case err == nil:
		o.afterPlay(r, result)
	case errors.Is(err, game.ErrMustFollowSuit), errors.Is(err, game.ErrCardNotHeld):
		o.sendInvalidPlay(sessionID, err.Error())
	}
}

// afterPlay broadcasts the post-play state and schedules what follows:
// trick settlement when the trick filled, otherwise a check on the next
// actor.
func (o *Orchestrator) afterPlay(r *room.Room, result game.PlayResult) {
	o.broadcastGameState(r)
	if result == game.PlayTrickComplete {
		code := r.Code
		o.clock.AfterFunc(o.pacing.TrickSettle, func() { o.settleTrick(code) })
		return
	}
	o.scheduleTurnCheck(r.Code, o.pacing.TurnCheck)
}

// NextRound deals the next round after the RoundEnd pause. Host-only.
func (o *Orchestrator) NextRound(sessionID, code string) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		if !r.IsHost(sessionID) {
			return
		}
		if err := g.NextRound(); err != nil {
			return
		}
		o.broadcastGameState(r)
		o.scheduleTurnCheck(code, o.pacing.TurnCheck)
	})
}

// RestartGame resets the room to the lobby. Host-only.
func (o *Orchestrator) RestartGame(sessionID, code string) {
	o.withRoom(code, func(r *room.Room) {
		if !r.IsHost(sessionID) {
			return
		}
		r.Reset()
		o.broadcast(r, MessageTypeGameReset, nil)
		o.broadcastRoom(r)
		o.logger.Info("game reset", "room", code)
	})
}

// EndGame tears the room down. Host-only.
func (o *Orchestrator) EndGame(sessionID, code string) {
	o.withRoom(code, func(r *room.Room) {
		if !r.IsHost(sessionID) {
			return
		}
		o.broadcast(r, MessageTypeGameEnded, nil)
		o.rooms.DeleteRoom(code)
		o.logger.Info("game ended", "room", code)
	})
}

// Disconnect handles a dropped session: lobby players lose their seat,
// in-game players are retained disconnected and their turns auto-progress
// after a grace period that allows reconnection.
func (o *Orchestrator) Disconnect(sessionID string) {
	r, ok := o.rooms.FindPlayerRoom(sessionID)
	if !ok {
		return
	}

	r.Lock()
	defer r.Unlock()

	started := r.Started
	empty := r.Leave(sessionID)
	if empty {
		o.rooms.DeleteRoom(r.Code)
		return
	}
	o.broadcastRoom(r)
	if started {
		o.scheduleTurnCheck(r.Code, o.pacing.DisconnectGrace)
	}
}

// settleTrick resolves a completed trick after the settle delay.
func (o *Orchestrator) settleTrick(code string) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		outcome, err := g.ResolveTrick()
		if err != nil {
			return
		}

		o.broadcast(r, MessageTypeTrickResult, TrickResultData{
			Winner:      outcome.Winner,
			WinningCard: outcome.WinningCard,
			Trick:       outcome.Trick,
		})

		if outcome.RoundComplete {
			o.clock.AfterFunc(o.pacing.RoundEnd, func() { o.settleRound(code) })
			return
		}
		o.clock.AfterFunc(o.pacing.TrickClear, func() { o.nextTrick(code) })
	})
}

// nextTrick publishes the cleared-trick state and nudges a disconnected
// leader if needed.
func (o *Orchestrator) nextTrick(code string) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		o.broadcastGameState(r)
		o.handleDisconnectedTurn(r)
	})
}

// settleRound scores the round after the round-end delay.
func (o *Orchestrator) settleRound(code string) {
	o.withGame(code, func(r *room.Room, g *game.Game) {
		if err := g.ResolveRound(); err != nil {
			return
		}
		o.broadcast(r, MessageTypeRoundEnd, roundEndData(g))
		o.broadcastGameState(r)
	})
}

// scheduleTurnCheck arms a disconnected-actor check after the delay. The
// callback re-looks the room up by code, so it is harmless if the room
// has since been deleted.
func (o *Orchestrator) scheduleTurnCheck(code string, delay time.Duration) {
	o.clock.AfterFunc(delay, func() {
		o.withGame(code, func(r *room.Room, g *game.Game) {
			o.handleDisconnectedTurn(r)
		})
	})
}

// handleDisconnectedTurn auto-acts for disconnected players so the game
// always progresses: undecided Nil prompts decline, bids default to zero,
// and the first legal card is played. The loop is bounded by the player
// count; each auto-action is followed by a fresh check because the next
// actor may be disconnected too.
func (o *Orchestrator) handleDisconnectedTurn(r *room.Room) {
	g := r.Game
	if g == nil {
		return
	}

	for i := 0; i < len(g.PlayerOrder); i++ {
		acted := false
		trickComplete := false

		switch g.Phase {
		case game.PhaseNilPrompt:
			for _, name := range g.PlayerOrder {
				if g.NilBids[name] == game.NilUndecided && !o.isConnected(r, name) {
					if err := g.NilDecision(name, false); err == nil {
						o.logger.Info("auto-declined nil for disconnected player", "room", r.Code, "player", name)
						acted = true
					}
				}
			}

		case game.PhaseBidding:
			cur := g.CurrentPlayer()
			if !o.isConnected(r, cur) {
				if err := g.PlaceBid(cur, 0); err == nil {
					o.logger.Info("auto-bid for disconnected player", "room", r.Code, "player", cur)
					acted = true
				}
			}

		case game.PhasePlaying:
			if len(g.CurrentTrick) == len(g.PlayerOrder) {
				// Trick settlement is already scheduled.
				return
			}
			cur := g.CurrentPlayer()
			if !o.isConnected(r, cur) {
				if cardID, ok := g.FirstLegalCardID(cur); ok {
					result, err := g.PlayCard(cur, cardID)
					if err == nil {
						o.logger.Info("auto-played for disconnected player", "room", r.Code, "player", cur, "card", cardID)
						acted = true
						trickComplete = result == game.PlayTrickComplete
					}
				}
			}

		default:
			return
		}

		if !acted {
			return
		}
		o.broadcastGameState(r)
		if trickComplete {
			code := r.Code
			o.clock.AfterFunc(o.pacing.TrickSettle, func() { o.settleTrick(code) })
			return
		}
	}
}

// withRoom runs fn with the room lock held; unknown codes are no-ops.
func (o *Orchestrator) withRoom(code string, fn func(*room.Room)) {
	r, ok := o.rooms.GetRoom(code)
	if !ok {
		return
	}
	r.Lock()
	defer r.Unlock()
	fn(r)
}

// withGame is withRoom plus a live-game requirement.
func (o *Orchestrator) withGame(code string, fn func(*room.Room, *game.Game)) {
	o.withRoom(code, func(r *room.Room) {
		if r.Game == nil {
			return
		}
		fn(r, r.Game)
	})
}

func (o *Orchestrator) playerName(r *room.Room, sessionID string) (string, bool) {
	p := r.PlayerByID(sessionID)
	if p == nil {
		return "", false
	}
	return p.Name, true
}

func (o *Orchestrator) isConnected(r *room.Room, name string) bool {
	p := r.PlayerByName(name)
	return p != nil && p.Connected
}

// broadcastRoom sends the membership snapshot to every connected member.
func (o *Orchestrator) broadcastRoom(r *room.Room) {
	o.broadcast(r, MessageTypeRoomUpdate, RoomUpdateFromRoom(r))
}

// broadcastGameState sends each connected player their own redacted view.
func (o *Orchestrator) broadcastGameState(r *room.Room) {
	g := r.Game
	if g == nil {
		return
	}
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		msg, err := NewMessage(MessageTypeGameState, GameStateForPlayer(g, p.Name))
		if err != nil {
			o.logger.Error("failed to build game state", "error", err, "room", r.Code)
			return
		}
		if err := o.send.SendToSession(p.ID, msg); err != nil {
			o.logger.Debug("failed to send game state", "error", err, "player", p.Name)
		}
	}
}

// broadcast sends one message to every connected member of a room.
func (o *Orchestrator) broadcast(r *room.Room, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		o.logger.Error("failed to build broadcast", "error", err, "type", messageType)
		return
	}
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		if err := o.send.SendToSession(p.ID, msg); err != nil {
			o.logger.Debug("failed to send broadcast", "error", err, "player", p.Name)
		}
	}
}

func (o *Orchestrator) sendInvalidPlay(sessionID, text string) {
	msg, err := NewMessage(MessageTypeInvalidPlay, InvalidPlayData{Message: text})
	if err != nil {
		return
	}
	_ = o.send.SendToSession(sessionID, msg)
}

// roundEndData summarizes the just-scored round per scoring unit.
func roundEndData(g *game.Game) RoundEndData {
	units := g.PlayerOrder
	history := g.RoundHistory
	scores := g.Scores
	if g.TeamMode() {
		units = g.TeamOrder
		history = g.TeamRoundHistory
		scores = g.TeamScores
	}

	data := RoundEndData{
		RoundScores:  make(map[string]int, len(units)),
		Scores:       scores,
		Penalties:    make(map[string]bool, len(units)),
		RoundHistory: history,
	}
	for _, unit := range units {
		rows := history[unit]
		if len(rows) == 0 {
			continue
		}
		last := rows[len(rows)-1]
		data.RoundScores[unit] = last.RoundScore
		data.Penalties[unit] = last.PenaltyApplied
		data.Round = last.Round
	}
	return data
}
