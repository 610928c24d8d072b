package memory_repo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	chat_repo "github.com/xenn00/classroom-chat/internal/repo/chat"
	room_repo "github.com/xenn00/classroom-chat/internal/repo/room"
	user_repo "github.com/xenn00/classroom-chat/internal/repo/user"
	"gorm.io/datatypes"
)

var (
	_ user_repo.UserRepoContract = (*Store)(nil)
	_ room_repo.RoomRepoContract = (*Store)(nil)
	_ chat_repo.ChatRepoContract = (*Store)(nil)
)

// Store keeps every record in process memory. It serves the memory store
// driver and tests. Returned records are copies.
type Store struct {
	mu sync.RWMutex

	users       map[string]*entity.User
	usersByName map[string]string
	rooms       map[string]*entity.Room
	members     map[string]map[string]*entity.RoomMember // roomID -> userID
	messages    map[string]*entity.Message
	polls       map[string]*entity.Poll
	memberSeq   int64
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]*entity.User),
		usersByName: make(map[string]string),
		rooms:       make(map[string]*entity.Room),
		members:     make(map[string]map[string]*entity.RoomMember),
		messages:    make(map[string]*entity.Message),
		polls:       make(map[string]*entity.Poll),
		now:         time.Now,
	}
}

// Users

func (s *Store) FindOrCreateByUsername(ctx context.Context, username string) (*entity.User, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.usersByName[username]; ok {
		u := *s.users[id]
		return &u, nil
	}

	now := s.now()
	u := &entity.User{ID: uuid.New().String(), Username: username, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.usersByName[username] = u.ID

	out := *u
	return &out, nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*entity.User, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, app_error.NotFound("user not found")
	}
	out := *u
	return &out, nil
}

func (s *Store) FindUsersByIDs(ctx context.Context, userIDs []string) ([]*entity.User, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*entity.User
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out := *u
			users = append(users, &out)
		}
	}
	return users, nil
}

// Rooms

func (s *Store) CreateRoom(ctx context.Context, room *entity.Room, admin *entity.RoomMember) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rooms {
		if existing.Code == room.Code && !existing.DeletedAt.Valid {
			return app_error.Conflict("room code already in use")
		}
	}

	now := s.now()
	room.CreatedAt, room.UpdatedAt = now, now
	stored := *room
	s.rooms[room.ID] = &stored

	admin.RoomID = room.ID
	s.insertMemberLocked(admin)
	return nil
}

func (s *Store) FindRoomByCode(ctx context.Context, code string) (*entity.Room, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.Code == code && !room.DeletedAt.Valid {
			out := *room
			return &out, nil
		}
	}
	return nil, app_error.NotFound("room not found")
}

func (s *Store) FindRoomByID(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.liveRoomLocked(roomID)
	if !ok {
		return nil, app_error.NotFound("room not found")
	}
	out := *room
	return &out, nil
}

func (s *Store) FindRoomsByIDs(ctx context.Context, roomIDs []string) ([]*entity.Room, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []*entity.Room
	for _, id := range roomIDs {
		if room, ok := s.liveRoomLocked(id); ok {
			out := *room
			rooms = append(rooms, &out)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ExpiresAt.Before(rooms[j].ExpiresAt) })
	return rooms, nil
}

func (s *Store) UpdateSettings(ctx context.Context, roomID string, settings entity.RoomSettings) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.liveRoomLocked(roomID)
	if !ok {
		return app_error.NotFound("room not found")
	}
	room.Settings = datatypes.NewJSONType(settings)
	room.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpdateExpiry(ctx context.Context, roomID string, expiresAt time.Time, settings entity.RoomSettings) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.liveRoomLocked(roomID)
	if !ok {
		return app_error.NotFound("room not found")
	}
	room.ExpiresAt = expiresAt
	room.Settings = datatypes.NewJSONType(settings)
	room.UpdatedAt = s.now()
	return nil
}

func (s *Store) SoftDeleteRoom(ctx context.Context, roomID string) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.liveRoomLocked(roomID)
	if !ok {
		return app_error.NotFound("room not found")
	}
	room.DeletedAt.Time = s.now()
	room.DeletedAt.Valid = true
	delete(s.members, roomID)
	return nil
}

func (s *Store) FindExpiredRooms(ctx context.Context, now time.Time) ([]*entity.Room, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []*entity.Room
	for _, room := range s.rooms {
		if !room.DeletedAt.Valid && room.Expired(now) {
			out := *room
			rooms = append(rooms, &out)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ExpiresAt.Before(rooms[j].ExpiresAt) })
	return rooms, nil
}

func (s *Store) liveRoomLocked(roomID string) (*entity.Room, bool) {
	room, ok := s.rooms[roomID]
	if !ok || room.DeletedAt.Valid {
		return nil, false
	}
	return room, true
}

// Memberships

func (s *Store) EnsureMembership(ctx context.Context, roomID, userID, role string) (*entity.RoomMember, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.members[roomID][userID]; ok {
		out := *m
		return &out, nil
	}
	m := &entity.RoomMember{RoomID: roomID, UserID: userID, Role: role}
	s.insertMemberLocked(m)
	out := *m
	return &out, nil
}

func (s *Store) insertMemberLocked(m *entity.RoomMember) {
	s.memberSeq++
	m.ID = s.memberSeq
	m.JoinedAt = s.now()

	if s.members[m.RoomID] == nil {
		s.members[m.RoomID] = make(map[string]*entity.RoomMember)
	}
	stored := *m
	s.members[m.RoomID][m.UserID] = &stored
}

func (s *Store) FindMembership(ctx context.Context, roomID, userID string) (*entity.RoomMember, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[roomID][userID]
	if !ok {
		return nil, app_error.NotFound("user not in room")
	}
	out := *m
	return &out, nil
}

func (s *Store) ListMemberships(ctx context.Context, roomID string) ([]*entity.RoomMember, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]*entity.RoomMember, 0, len(s.members[roomID]))
	for _, m := range s.members[roomID] {
		out := *m
		members = append(members, &out)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s *Store) ListMembershipsForUser(ctx context.Context, userID string) ([]*entity.RoomMember, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*entity.RoomMember
	for _, byUser := range s.members {
		if m, ok := byUser[userID]; ok {
			out := *m
			members = append(members, &out)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s *Store) SetMuted(ctx context.Context, roomID, userID string, muted bool) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[roomID][userID]
	if !ok {
		return app_error.NotFound("user not in room")
	}
	m.Muted = muted
	return nil
}

func (s *Store) DeleteMembership(ctx context.Context, roomID, userID string) (bool, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[roomID][userID]; !ok {
		return false, nil
	}
	delete(s.members[roomID], userID)
	return true, nil
}

// Messages

func (s *Store) InsertMessage(ctx context.Context, msg *entity.Message) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (s *Store) FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.liveMessageLocked(messageID)
	if !ok {
		return nil, app_error.NotFound("message not found")
	}
	return copyMessage(msg), nil
}

func (s *Store) ListPublicMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, *app_error.AppError) {
	return s.latest(limit, func(m *entity.Message) bool {
		return m.RoomID == roomID && !m.IsPrivate()
	}), nil
}

func (s *Store) ListPrivateMessages(ctx context.Context, roomID, userA, userB string, limit int) ([]*entity.Message, *app_error.AppError) {
	return s.latest(limit, func(m *entity.Message) bool {
		return m.RoomID == roomID && m.IsPrivate() &&
			((m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA))
	}), nil
}

func (s *Store) LatestMessage(ctx context.Context, roomID string) (*entity.Message, *app_error.AppError) {
	messages, _ := s.ListPublicMessages(ctx, roomID, 1)
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

func (s *Store) latest(limit int, match func(*entity.Message) bool) []*entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Message
	for _, m := range s.messages {
		if m.DeletedAt == nil && match(m) {
			out = append(out, copyMessage(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Store) MarkSeen(ctx context.Context, messageID, userID string) ([]string, bool, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.liveMessageLocked(messageID)
	if !ok {
		return nil, false, app_error.NotFound("message not found")
	}
	if slices.Contains(msg.SeenBy, userID) {
		return slices.Clone(msg.SeenBy), false, nil
	}
	msg.SeenBy = append(msg.SeenBy, userID)
	return slices.Clone(msg.SeenBy), true, nil
}

func (s *Store) ToggleReaction(ctx context.Context, messageID, emoji, userID string) ([]string, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.liveMessageLocked(messageID)
	if !ok {
		return nil, app_error.NotFound("message not found")
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}

	reactors := msg.Reactions[emoji]
	if i := slices.Index(reactors, userID); i >= 0 {
		reactors = slices.Delete(slices.Clone(reactors), i, i+1)
	} else {
		reactors = append(slices.Clone(reactors), userID)
	}
	msg.Reactions[emoji] = reactors

	return slices.Clone(reactors), nil
}

func (s *Store) liveMessageLocked(messageID string) (*entity.Message, bool) {
	msg, ok := s.messages[messageID]
	if !ok || msg.DeletedAt != nil {
		return nil, false
	}
	return msg, true
}

// Polls

func (s *Store) InsertPoll(ctx context.Context, poll *entity.Poll) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (s *Store) FindPollByID(ctx context.Context, pollID string) (*entity.Poll, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return nil, app_error.NotFound("poll not found")
	}
	return copyPoll(p), nil
}

func (s *Store) ListPolls(ctx context.Context, roomID string) ([]*entity.Poll, *app_error.AppError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var polls []*entity.Poll
	for _, p := range s.polls {
		if p.RoomID == roomID {
			polls = append(polls, copyPoll(p))
		}
	}
	sort.SliceStable(polls, func(i, j int) bool { return polls[i].CreatedAt.Before(polls[j].CreatedAt) })
	return polls, nil
}

func (s *Store) SetVote(ctx context.Context, pollID, userID string, optionIndex int) (map[string]int, *app_error.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return nil, app_error.NotFound("poll not found")
	}
	if p.Votes == nil {
		p.Votes = make(map[string]int)
	}
	p.Votes[userID] = optionIndex
	return copyVotes(p.Votes), nil
}

func (s *Store) PurgeRoom(ctx context.Context, roomID string) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.messages {
		if m.RoomID == roomID {
			delete(s.messages, id)
		}
	}
	for id, p := range s.polls {
		if p.RoomID == roomID {
			delete(s.polls, id)
		}
	}
	return nil
}

// Counts used by tests.

func (s *Store) MessageCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.messages {
		if m.RoomID == roomID {
			n++
		}
	}
	return n
}

func (s *Store) PollCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.polls {
		if p.RoomID == roomID {
			n++
		}
	}
	return n
}

func copyMessage(m *entity.Message) *entity.Message {
	out := *m
	out.MentionedUserIDs = slices.Clone(m.MentionedUserIDs)
	out.SeenBy = slices.Clone(m.SeenBy)
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, reactors := range m.Reactions {
			out.Reactions[emoji] = slices.Clone(reactors)
		}
	}
	return &out
}

func copyPoll(p *entity.Poll) *entity.Poll {
	out := *p
	out.Options = slices.Clone(p.Options)
	out.Votes = copyVotes(p.Votes)
	return &out
}

func copyVotes(votes map[string]int) map[string]int {
	out := make(map[string]int, len(votes))
	for k, v := range votes {
		out[k] = v
	}
	return out
}
