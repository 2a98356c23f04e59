package room

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Manager owns the process-wide rooms table. Its mutex covers only
// insert/lookup/delete and the collision check during code generation;
// room state itself is protected by each room's own lock.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	codes  *CodeGenerator
	logger *log.Logger
}

// NewManager creates a manager. A nil RandSource means crypto-backed room
// codes.
func NewManager(logger *log.Logger, src RandSource) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		codes:  NewCodeGenerator(src),
		logger: logger.WithPrefix("rooms"),
	}
}

// CreateRoom makes a room with a unique code, seats the host, and seeds
// two empty teams when created in team mode.
func (m *Manager) CreateRoom(hostID, hostName string, mode GameMode) (*Room, error) {
	if hostName == "" || len(hostName) > MaxNameLength {
		return nil, ErrNameInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.codes.Generate()
	for _, taken := m.rooms[code]; taken; _, taken = m.rooms[code] {
		code = m.codes.Generate()
	}

	r := &Room{
		Code:   code,
		HostID: hostID,
		Mode:   mode,
		Players: []*Player{
			{ID: hostID, Name: hostName, Connected: true},
		},
	}
	if mode == ModeTeams {
		r.initTeams(2)
	}

	m.rooms[code] = r
	m.logger.Info("room created", "code", code, "host", hostName, "mode", mode)
	return r, nil
}

// GetRoom looks up a room by code
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

// DeleteRoom destroys a room
func (m *Manager) DeleteRoom(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[code]; ok {
		delete(m.rooms, code)
		m.logger.Info("room deleted", "code", code)
	}
}

// FindPlayerRoom scans for the room holding a session. Linear in rooms
// and players, which is fine at this scale.
func (m *Manager) FindPlayerRoom(sessionID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		if r.PlayerByID(sessionID) != nil {
			return r, true
		}
	}
	return nil, false
}

// RoomCount returns the number of live rooms
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
