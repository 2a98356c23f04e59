package server

import (
	"encoding/json"
	"time"

	"github.com/lox/doubledeck/internal/deck"
	"github.com/lox/doubledeck/internal/game"
	"github.com/lox/doubledeck/internal/room"
)

// MessageType names a wire event
type MessageType string

// Client -> server events.
const (
	MessageTypeCreateRoom  MessageType = "create-room"
	MessageTypeJoinRoom    MessageType = "join-room"
	MessageTypeToggleReady MessageType = "toggle-ready"
	MessageTypeSetGameMode MessageType = "set-game-mode"
	MessageTypeAssignTeam  MessageType = "assign-team"
	MessageTypeUpdateTeams MessageType = "update-teams"
	MessageTypeLeaveRoom   MessageType = "leave-room"
	MessageTypeStartGame   MessageType = "start-game"
	MessageTypeNilDecision MessageType = "nil-decision"
	MessageTypePlaceBid    MessageType = "place-bid"
	MessageTypePlayCard    MessageType = "play-card"
	MessageTypeNextRound   MessageType = "next-round"
	MessageTypeRestartGame MessageType = "restart-game"
	MessageTypeEndGame     MessageType = "end-game"
	MessageTypeLeaveGame   MessageType = "leave-game"
)

// Server -> client events.
const (
	MessageTypeAck         MessageType = "ack"
	MessageTypeRoomUpdate  MessageType = "room-update"
	MessageTypeGameState   MessageType = "game-state"
	MessageTypeTrickResult MessageType = "trick-result"
	MessageTypeRoundEnd    MessageType = "round-end"
	MessageTypeInvalidPlay MessageType = "invalid-play"
	MessageTypeGameReset   MessageType = "game-reset"
	MessageTypeGameEnded   MessageType = "game-ended"
	MessageTypeError       MessageType = "error"
)

// Message is the wire envelope shared by both directions
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataBytes = b
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client -> server payloads.

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
	GameMode   string `json:"gameMode"`
}

type JoinRoomData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// RoomOnlyData covers the events that carry nothing but a room code.
type RoomOnlyData struct {
	RoomCode string `json:"roomCode"`
}

type SetGameModeData struct {
	RoomCode string `json:"roomCode"`
	GameMode string `json:"gameMode"`
}

type AssignTeamData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	TeamName   string `json:"teamName"`
}

type UpdateTeamsData struct {
	RoomCode string `json:"roomCode"`
	NumTeams int    `json:"numTeams"`
}

type NilDecisionData struct {
	RoomCode string `json:"roomCode"`
	GoNil    bool   `json:"goNil"`
}

type PlaceBidData struct {
	RoomCode string `json:"roomCode"`
	Bid      int    `json:"bid"`
}

type PlayCardData struct {
	RoomCode string `json:"roomCode"`
	CardID   int    `json:"cardId"`
}

// Server -> client payloads.

type AckData struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	RoomCode    string `json:"roomCode,omitempty"`
	Reconnected bool   `json:"reconnected,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayerInfo struct {
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"isHost"`
}

type RoomUpdateData struct {
	RoomCode  string              `json:"roomCode"`
	GameMode  string              `json:"gameMode"`
	Started   bool                `json:"started"`
	Players   []PlayerInfo        `json:"players"`
	Teams     map[string][]string `json:"teams,omitempty"`
	TeamOrder []string            `json:"teamOrder,omitempty"`
}

// GameStateData is the per-recipient snapshot: the recipient's own hand in
// full, everyone else's hand as a count.
type GameStateData struct {
	CurrentRound       int                           `json:"currentRound"`
	Phase              game.Phase                    `json:"phase"`
	PlayerOrder        []string                      `json:"playerOrder"`
	DealerIndex        int                           `json:"dealerIndex"`
	CurrentPlayerIndex int                           `json:"currentPlayerIndex"`
	CurrentPlayer      string                        `json:"currentPlayer"`
	Hand               []deck.Card                   `json:"hand"`
	OtherHandCounts    map[string]int                `json:"otherHandCounts"`
	Bids               map[string]int                `json:"bids"`
	NilBids            map[string]game.NilChoice     `json:"nilBids"`
	TricksWon          map[string]int                `json:"tricksWon"`
	CurrentTrick       []game.PlayedCard             `json:"currentTrick"`
	TrickNumber        int                           `json:"trickNumber"`
	LedSuit            deck.Suit                     `json:"ledSuit"`
	SpadesBroken       bool                          `json:"spadesBroken"`
	LastTrickWinner    string                        `json:"lastTrickWinner,omitempty"`
	Scores             map[string]int                `json:"scores"`
	OvertrickBag       map[string]int                `json:"overtrickBag"`
	RoundHistory       map[string][]game.RoundRecord `json:"roundHistory"`
	Teams              map[string][]string           `json:"teams,omitempty"`
	TeamScores         map[string]int                `json:"teamScores,omitempty"`
	TeamOvertrickBag   map[string]int                `json:"teamOvertrickBag,omitempty"`
	TeamRoundHistory   map[string][]game.RoundRecord `json:"teamRoundHistory,omitempty"`
	GameOver           bool                          `json:"gameOver"`
	Winner             *game.Result                  `json:"winner,omitempty"`
}

type TrickResultData struct {
	Winner      string            `json:"winner"`
	WinningCard deck.Card         `json:"winningCard"`
	Trick       []game.PlayedCard `json:"trick"`
}

type RoundEndData struct {
	Round        int                           `json:"round"`
	RoundScores  map[string]int                `json:"roundScores"`
	Scores       map[string]int                `json:"scores"`
	Penalties    map[string]bool               `json:"penalties"`
	RoundHistory map[string][]game.RoundRecord `json:"roundHistory"`
}

type InvalidPlayData struct {
	Message string `json:"message"`
}

// RoomUpdateFromRoom builds the membership-level broadcast
func RoomUpdateFromRoom(r *room.Room) RoomUpdateData {
	players := make([]PlayerInfo, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerInfo{
			Name:      p.Name,
			Ready:     p.Ready,
			Connected: p.Connected,
			IsHost:    r.IsHost(p.ID),
		}
	}
	return RoomUpdateData{
		RoomCode:  r.Code,
		GameMode:  string(r.Mode),
		Started:   r.Started,
		Players:   players,
		Teams:     r.Teams,
		TeamOrder: r.TeamOrder,
	}
}

// GameStateForPlayer builds the snapshot a single player may see. Other
// hands are redacted to counts, and a player who has not answered the Nil
// prompt sees no cards at all, since declaring Nil must happen blind.
func GameStateForPlayer(g *game.Game, name string) GameStateData {
	hand := append([]deck.Card(nil), g.Hands[name]...)
	if g.Phase == game.PhaseNilPrompt && g.NilBids[name] == game.NilUndecided {
		hand = nil
	}

	counts := make(map[string]int, len(g.PlayerOrder))
	for _, p := range g.PlayerOrder {
		if p != name {
			counts[p] = len(g.Hands[p])
		}
	}

	return GameStateData{
		CurrentRound:       g.CurrentRound,
		Phase:              g.Phase,
		PlayerOrder:        g.PlayerOrder,
		DealerIndex:        g.DealerIndex,
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		CurrentPlayer:      g.CurrentPlayer(),
		Hand:               hand,
		OtherHandCounts:    counts,
		Bids:               g.Bids,
		NilBids:            g.NilBids,
		TricksWon:          g.TricksWon,
		CurrentTrick:       g.CurrentTrick,
		TrickNumber:        g.TrickNumber,
		LedSuit:            g.LedSuit,
		SpadesBroken:       g.SpadesBroken,
		LastTrickWinner:    g.LastTrickWinner,
		Scores:             g.Scores,
		OvertrickBag:       g.OvertrickBag,
		RoundHistory:       g.RoundHistory,
		Teams:              g.Teams,
		TeamScores:         g.TeamScores,
		TeamOvertrickBag:   g.TeamOvertrickBag,
		TeamRoundHistory:   g.TeamRoundHistory,
		GameOver:           g.GameOver,
		Winner:             g.Winner,
	}
}
