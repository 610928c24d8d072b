package websocket

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/metrics"
)

// Hub owns every live connection of the process. Registry and Presence hold
// who is where; the hub routes pushes to rooms, users and single connections.
type Hub struct {
	Registry *Registry
	Presence *Presence

	clients map[string]*Client
	mu      sync.RWMutex

	// Hub lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	stats   HubStats
	statsMu sync.RWMutex

	cleanupTicker *time.Ticker
	idleTimeout   time.Duration
}

type HubStats struct {
	TotalRooms       int       `json:"total_rooms"`
	TotalClients     int       `json:"total_clients"`
	TotalUsers       int       `json:"total_users"`
	TotalConnections int64     `json:"total_connections"`
	MessageSent      int64     `json:"message_sent"`
	MessageDropped   int64     `json:"message_dropped"`
	LastReset        time.Time `json:"last_reset"`
}

type RoomStats struct {
	RoomID            string `json:"room_id"`
	Exists            bool   `json:"exists"`
	ActiveConnections int    `json:"active_connections"`
	UniqueUsers       int    `json:"unique_users"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		Registry:    NewRegistry(),
		Presence:    NewPresence(),
		clients:     make(map[string]*Client),
		ctx:         ctx,
		cancel:      cancel,
		stats:       HubStats{LastReset: time.Now()},
		idleTimeout: 2 * pongWait,
	}
}

// Run starts the idle-connection sweep. It returns once the hub is closed.
func (h *Hub) Run() {
	h.cleanupTicker = time.NewTicker(1 * time.Minute)
	defer h.cleanupTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.cleanupTicker.C:
			h.performCleanup()
		}
	}
}

// Connect admits an authenticated client. It is not in any room yet.
func (h *Hub) Connect(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.Registry.Register(client.ID, client.UserID, client.Username)

	h.updateStats(func(stats *HubStats) {
		stats.TotalConnections++
	})
	metrics.Connections.Inc()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: client connected")
}

// Disconnect forgets the client and returns its last session so the caller
// can tell the room it left.
func (h *Hub) Disconnect(client *Client) (Session, bool) {
	h.mu.Lock()
	if current, ok := h.clients[client.ID]; !ok || current != client {
		h.mu.Unlock()
		return Session{}, false
	}
	delete(h.clients, client.ID)
	h.mu.Unlock()

	sess, ok := h.Registry.Release(client.ID)
	if ok && sess.InRoom() {
		h.Presence.Remove(sess.RoomID, client.ID)
	}
	metrics.Connections.Dec()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Str("roomID", sess.RoomID).Msg("ws: client disconnected")
	return sess, ok
}

// JoinRoom places the connection in roomID, leaving whatever room it was in.
// The previous room id is returned so its members can be updated.
func (h *Hub) JoinRoom(connID, roomID string, anonymous bool) (string, bool) {
	prev, ok := h.Registry.AttachToRoom(connID, roomID, anonymous)
	if !ok {
		return "", false
	}
	if prev != "" && prev != roomID {
		h.Presence.Remove(prev, connID)
	}
	h.Presence.Add(roomID, connID)

	log.Debug().Str("roomID", roomID).Str("clientID", connID).Msg("ws: client joined room")
	return prev, true
}

// LeaveRoom takes the connection out of its room.
func (h *Hub) LeaveRoom(connID string) (string, bool) {
	roomID, ok := h.Registry.Detach(connID)
	if !ok {
		return "", false
	}
	h.Presence.Remove(roomID, connID)
	return roomID, true
}

// EvictUser removes every connection of userID from roomID after sending
// them event. It returns the evicted connection ids.
func (h *Hub) EvictUser(roomID, userID, event string, data any) []string {
	var evicted []string
	for _, connID := range h.Registry.ConnectionsForUser(userID) {
		if !h.Presence.Contains(roomID, connID) {
			continue
		}
		h.ToConnection(connID, event, data)
		if h.Registry.DetachFrom(connID, roomID) {
			h.Presence.Remove(roomID, connID)
			evicted = append(evicted, connID)
		}
	}
	return evicted
}

// CloseRoom sends a final event to everyone present, detaches their sessions
// and drops the room's presence entry.
func (h *Hub) CloseRoom(roomID, event string, data any) []string {
	h.ToRoom(roomID, event, data)

	connIDs := h.Presence.Drop(roomID)
	for _, connID := range connIDs {
		h.Registry.DetachFrom(connID, roomID)
	}

	log.Info().Str("roomID", roomID).Int("connections", len(connIDs)).Str("event", event).Msg("ws: room closed")
	return connIDs
}

// ToRoom sends an event to every connection present in a room.
func (h *Hub) ToRoom(roomID, event string, data any) {
	h.ToRoomExcept(roomID, "", event, data)
}

// ToRoomExcept is ToRoom without the given connection.
func (h *Hub) ToRoomExcept(roomID, exceptConnID, event string, data any) {
	connIDs := h.Presence.Connections(roomID)
	if len(connIDs) == 0 {
		return
	}

	payload, ok := h.encode(roomID, event, data)
	if !ok {
		return
	}

	targets := make([]string, 0, len(connIDs))
	for _, id := range connIDs {
		if id != exceptConnID {
			targets = append(targets, id)
		}
	}
	h.deliver(targets, payload)

	log.Debug().Str("roomID", roomID).Int("targets", len(targets)).Str("messageType", event).Msg("ws: broadcast completed")
}

// ToUser sends an event to every live connection of a user, whichever room
// they are in.
func (h *Hub) ToUser(userID, event string, data any, except ...string) {
	connIDs := h.Registry.ConnectionsForUser(userID)
	if len(connIDs) == 0 {
		return
	}

	payload, ok := h.encode("", event, data)
	if !ok {
		return
	}

	targets := make([]string, 0, len(connIDs))
	for _, id := range connIDs {
		if !slices.Contains(except, id) {
			targets = append(targets, id)
		}
	}
	h.deliver(targets, payload)
}

// ToConnection sends an event to exactly one connection.
func (h *Hub) ToConnection(connID, event string, data any) {
	payload, ok := h.encode("", event, data)
	if !ok {
		return
	}
	h.deliver([]string{connID}, payload)
}

// Ack answers the request id on one connection.
func (h *Hub) Ack(connID, requestID string, data any) {
	payload, err := json.Marshal(AckMessage{Type: AckType, ID: requestID, Data: data})
	if err != nil {
		log.Error().Err(err).Str("clientID", connID).Msg("ws: failed to marshal ack")
		return
	}
	h.deliver([]string{connID}, payload)
}

func (h *Hub) encode(roomID, event string, data any) ([]byte, bool) {
	payload, err := json.Marshal(OutgoingMessage{
		Type:      event,
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Str("messageType", event).Msg("ws: failed to marshal broadcast message")
		return nil, false
	}
	return payload, true
}

// deliver never blocks: a client whose buffer is full misses the event and
// is closed as a slow consumer.
func (h *Hub) deliver(connIDs []string, payload []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok && c.IsClientActive() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var sent, dropped int64
	for _, c := range targets {
		select {
		case c.Send <- payload:
			sent++
		default:
			dropped++
			log.Warn().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: slow consumer, dropping message")
			go c.Close()
		}
	}

	metrics.EventsDelivered.Add(float64(sent))
	metrics.EventsDropped.Add(float64(dropped))
	h.updateStats(func(stats *HubStats) {
		stats.MessageSent += sent
		stats.MessageDropped += dropped
	})
}

// Client returns the live client for a connection id.
func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// GetRoomStats returns statistics for a room
func (h *Hub) GetRoomStats(roomID string) RoomStats {
	stats := RoomStats{RoomID: roomID}

	uniqueUsers := make(map[string]struct{})
	for _, connID := range h.Presence.Connections(roomID) {
		stats.Exists = true
		if s, ok := h.Registry.Lookup(connID); ok {
			stats.ActiveConnections++
			uniqueUsers[s.UserID] = struct{}{}
		}
	}
	stats.UniqueUsers = len(uniqueUsers)

	return stats
}

// GetHubStats returns overall hub statistics
func (h *Hub) GetHubStats() HubStats {
	h.statsMu.RLock()
	stats := h.stats
	h.statsMu.RUnlock()

	stats.TotalRooms = h.Presence.Rooms()
	stats.TotalClients = h.Registry.Count()
	stats.TotalUsers = h.Registry.Users()
	return stats
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

func (h *Hub) performCleanup() {
	now := time.Now()

	var toRemove []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		if !client.IsClientActive() || now.Sub(client.GetLastSeen()) > h.idleTimeout {
			toRemove = append(toRemove, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range toRemove {
		log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: cleaning up inactive client")
		client.Close()
	}

	log.Debug().Int("cleaned", len(toRemove)).Msg("ws: cleanup routine completed")
}

// Close gracefully shuts down the hub
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	h.cancel()

	h.mu.RLock()
	allClients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		allClients = append(allClients, client)
	}
	h.mu.RUnlock()

	for _, client := range allClients {
		client.Close()
	}

	log.Info().Int("clients", len(allClients)).Msg("ws: hub shutdown completed")
}
