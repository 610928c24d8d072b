package websocket

import (
	"sort"
	"sync"

	"github.com/xenn00/classroom-chat/internal/entity"
)

// MemberView is one present connection as shown in members_update.
type MemberView struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	Muted     bool   `json:"muted"`
	Anonymous bool   `json:"anonymous"`
}

// Presence tracks which connections are in each room, in join order.
type Presence struct {
	mu    sync.RWMutex
	rooms map[string]map[string]uint64
	seq   uint64
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]map[string]uint64)}
}

func (p *Presence) Add(roomID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := p.rooms[roomID]
	if conns == nil {
		conns = make(map[string]uint64)
		p.rooms[roomID] = conns
	}
	if _, ok := conns[connID]; ok {
		return
	}
	p.seq++
	conns[connID] = p.seq
}

// Remove reports whether the connection was present. The room entry is
// discarded once its last connection leaves.
func (p *Presence) Remove(roomID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(p.rooms, roomID)
	}
	return true
}

func (p *Presence) Contains(roomID, connID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.rooms[roomID][connID]
	return ok
}

// Connections returns the room's connection ids in join order.
func (p *Presence) Connections(roomID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connectionsLocked(roomID)
}

func (p *Presence) connectionsLocked(roomID string) []string {
	conns := p.rooms[roomID]
	if len(conns) == 0 {
		return nil
	}
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return conns[ids[i]] < conns[ids[j]] })
	return ids
}

// Drop removes the whole room entry and returns who was in it.
func (p *Presence) Drop(roomID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.connectionsLocked(roomID)
	delete(p.rooms, roomID)
	return ids
}

func (p *Presence) Rooms() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

// MembersOf joins present connections with the room's membership records.
// Role and mute come from memberships as given, so callers pass records
// read at call time. Connections without a membership are left out.
func (p *Presence) MembersOf(reg *Registry, roomID string, memberships []*entity.RoomMember) []MemberView {
	byUser := make(map[string]*entity.RoomMember, len(memberships))
	for _, m := range memberships {
		byUser[m.UserID] = m
	}

	members := make([]MemberView, 0)
	for _, connID := range p.Connections(roomID) {
		s, ok := reg.Lookup(connID)
		if !ok || s.RoomID != roomID {
			continue
		}
		m, ok := byUser[s.UserID]
		if !ok {
			continue
		}
		members = append(members, MemberView{
			ID:        connID,
			UserID:    s.UserID,
			Username:  s.Username,
			IsAdmin:   m.IsAdmin(),
			Muted:     m.Muted,
			Anonymous: s.Anonymous,
		})
	}
	return members
}
