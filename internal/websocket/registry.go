package websocket

import (
	"sort"
	"sync"
)

// Session is what the server knows about one live connection.
type Session struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	RoomID       string `json:"roomId,omitempty"`
	Anonymous    bool   `json:"anonymous"`
}

// InRoom reports whether the session currently occupies a room.
func (s Session) InRoom() bool {
	return s.RoomID != ""
}

// DisplayName is the name shown to other members.
func (s Session) DisplayName() string {
	if s.Anonymous {
		return AnonymousName
	}
	return s.Username
}

const AnonymousName = "Anonymous"

// Registry maps live connections to users and the room each one occupies.
// A user may hold any number of connections.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Register(connID, userID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = &Session{ConnectionID: connID, UserID: userID, Username: username}
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][connID] = struct{}{}
}

// AttachToRoom moves the connection into roomID and returns the room it
// previously occupied, if any.
func (r *Registry) AttachToRoom(connID, roomID string, anonymous bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return "", false
	}
	prev := s.RoomID
	s.RoomID = roomID
	s.Anonymous = anonymous
	return prev, true
}

// Detach takes the connection out of its room without releasing it.
func (r *Registry) Detach(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok || s.RoomID == "" {
		return "", false
	}
	roomID := s.RoomID
	s.RoomID = ""
	s.Anonymous = false
	return roomID, true
}

// DetachFrom is Detach guarded on the connection still being in roomID.
func (r *Registry) DetachFrom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok || s.RoomID != roomID {
		return false
	}
	s.RoomID = ""
	s.Anonymous = false
	return true
}

func (r *Registry) SetAnonymous(connID string, anonymous bool) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	s.Anonymous = anonymous
	return *s, true
}

func (r *Registry) Lookup(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ConnectionsForUser returns the user's live connection ids in a stable order.
func (r *Registry) ConnectionsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	if len(conns) == 0 {
		return nil
	}
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Release forgets the connection. The user index entry goes with the last
// connection of that user.
func (r *Registry) Release(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, connID)
	if conns, ok := r.byUser[s.UserID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
	return *s, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
