// Package registry owns the process-wide session and room tables. Room
// state itself is authoritative inside each match loop; the registry
// mirrors the listing fields so RPCs can answer without touching a
// running match.
package registry

import (
	"errors"
	"sync"

	"cardclash/internal/domain"
)

var (
	ErrEmptyName    = errors.New("player name is empty")
	ErrRoomNotFound = errors.New("room not found")
)

// Session is the per-connection player record. RoomID is a lookup key,
// not an owning reference; it is cleared on leave and disconnect.
type Session struct {
	SessionID string
	Name      string
	RoomID    string
}

// RoomInfo is the registry's view of a room for the public listing.
type RoomInfo struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Mode     domain.Mode      `json:"gameMode"`
	Players  int              `json:"players"`
	Capacity int              `json:"capacity"`
	State    domain.GameState `json:"state"`
}

// Service guards the session and room maps. Both are read and mutated
// from multiple match loops and RPC goroutines, so every operation
// takes the one registry lock.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session
	rooms    map[string]RoomInfo
}

// NewService constructs an empty registry.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]RoomInfo),
	}
}

// SetPlayerName creates or renames the player record for a session.
func (s *Service) SetPlayerName(sessionID, name string) (*Session, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &Session{SessionID: sessionID}
		s.sessions[sessionID] = sess
	}
	sess.Name = name
	out := *sess
	return &out, nil
}

// Lookup returns a copy of the session record, if any.
func (s *Service) Lookup(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// PlayerName returns the display name set for a session, or the empty
// string.
func (s *Service) PlayerName(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Name
	}
	return ""
}

// BindRoom records which room a session currently occupies.
func (s *Service) BindRoom(sessionID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.RoomID = roomID
	}
}

// UnbindRoom clears a session's room back-reference.
func (s *Service) UnbindRoom(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.RoomID = ""
	}
}

// RemoveSession drops the player record on disconnect.
func (s *Service) RemoveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// RegisterRoom adds a room to the listing.
func (s *Service) RegisterRoom(info RoomInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info.Capacity == 0 {
		info.Capacity = domain.RoomCapacity
	}
	s.rooms[info.ID] = info
}

// UpdateRoom refreshes a room's occupancy and state.
func (s *Service) UpdateRoom(roomID string, players int, state domain.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	info.Players = players
	info.State = state
	s.rooms[roomID] = info
	return nil
}

// DeleteRoom removes a room from the listing.
func (s *Service) DeleteRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// ListOpenRooms returns rooms that still have a free seat.
func (s *Service) ListOpenRooms() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := make([]RoomInfo, 0, len(s.rooms))
	for _, info := range s.rooms {
		if info.Players < info.Capacity {
			open = append(open, info)
		}
	}
	return open
}
