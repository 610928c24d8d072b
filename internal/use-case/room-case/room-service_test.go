package room_service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

// collidingStore reports a code collision for the first n room inserts.
type collidingStore struct {
	*memory_repo.Store
	collisions int
	attempts   int
}

func (s *collidingStore) CreateRoom(ctx context.Context, room *entity.Room, admin *entity.RoomMember) *app_error.AppError {
	s.attempts++
	if s.attempts <= s.collisions {
		return app_error.Conflict("room code already in use")
	}
	return s.Store.CreateRoom(ctx, room, admin)
}

func newService(t *testing.T, rooms *collidingStore) (*RoomService, *websocket.Hub, *memory_repo.Store) {
	t.Helper()

	store := rooms.Store
	hub := websocket.NewHub()
	t.Cleanup(hub.Close)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	deps := &core.Deps{
		Users: store,
		Rooms: rooms,
		Chats: store,
		Hub:   hub,
		Now:   func() time.Time { return now },
	}
	return NewRoomService(deps, 0).(*RoomService), hub, store
}

func connect(t *testing.T, hub *websocket.Hub, store *memory_repo.Store, username string) *websocket.Client {
	t.Helper()

	user, err := store.FindOrCreateByUsername(context.Background(), username)
	require.Nil(t, err)
	c := websocket.NewClient(nil, user.ID, username, nil)
	hub.Connect(c)
	return c
}

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, codeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected symbol %q", r)
		}
	}
	assert.NotContains(t, codeAlphabet, "0")
	assert.NotContains(t, codeAlphabet, "O")
	assert.NotContains(t, codeAlphabet, "1")
	assert.NotContains(t, codeAlphabet, "I")
}

func TestCreateRoom_RetriesOnCodeCollision(t *testing.T) {
	rooms := &collidingStore{Store: memory_repo.NewStore(), collisions: 2}
	svc, hub, store := newService(t, rooms)
	admin := connect(t, hub, store, "alice")

	snap, err := svc.CreateRoom(context.Background(), admin.ID, chat_dto.CreateRoomRequest{Name: "  Biology  "})
	require.Nil(t, err)

	assert.Equal(t, 3, rooms.attempts)
	assert.Equal(t, "Biology", snap.RoomName)
	assert.True(t, snap.IsAdmin)
	assert.Equal(t, core.DefaultDuration, snap.Settings.DurationMinutes)
	assert.True(t, snap.Settings.PrivateChatEnabled)
	assert.False(t, snap.Settings.Locked)
}

func TestCreateRoom_GivesUpAfterRepeatedCollisions(t *testing.T) {
	rooms := &collidingStore{Store: memory_repo.NewStore(), collisions: codeAttempts}
	svc, hub, store := newService(t, rooms)
	admin := connect(t, hub, store, "alice")

	_, err := svc.CreateRoom(context.Background(), admin.ID, chat_dto.CreateRoomRequest{})
	require.NotNil(t, err)
	assert.Equal(t, errCreateFailed, err.Message)

	sess, _ := hub.Registry.Lookup(admin.ID)
	assert.False(t, sess.InRoom())
}

func TestCreateRoom_DurationIsClamped(t *testing.T) {
	rooms := &collidingStore{Store: memory_repo.NewStore()}
	svc, hub, store := newService(t, rooms)
	admin := connect(t, hub, store, "alice")

	snap, err := svc.CreateRoom(context.Background(), admin.ID, chat_dto.CreateRoomRequest{DurationMinutes: 2})
	require.Nil(t, err)
	assert.Equal(t, core.MinDuration, snap.Settings.DurationMinutes)
	assert.Equal(t, svc.Clock().Add(time.Duration(core.MinDuration)*time.Minute), snap.ExpiresAt)
	assert.Equal(t, core.DefaultRoomName, snap.RoomName)
}

func TestJoinRoom_CodeIsCaseInsensitive(t *testing.T) {
	rooms := &collidingStore{Store: memory_repo.NewStore()}
	svc, hub, store := newService(t, rooms)
	admin := connect(t, hub, store, "alice")
	student := connect(t, hub, store, "bob")

	created, err := svc.CreateRoom(context.Background(), admin.ID, chat_dto.CreateRoomRequest{})
	require.Nil(t, err)

	joined, err := svc.JoinRoom(context.Background(), student.ID, chat_dto.JoinRoomRequest{RoomCode: " " + strings.ToLower(created.RoomCode) + " "})
	require.Nil(t, err)
	assert.Equal(t, created.RoomID, joined.RoomID)
	assert.Len(t, joined.Members, 2)
}

func TestListRooms(t *testing.T) {
	rooms := &collidingStore{Store: memory_repo.NewStore()}
	svc, hub, store := newService(t, rooms)
	admin := connect(t, hub, store, "alice")
	ctx := context.Background()

	empty, err := svc.ListRooms(ctx, admin.UserID)
	require.Nil(t, err)
	assert.Empty(t, empty)

	created, err := svc.CreateRoom(ctx, admin.ID, chat_dto.CreateRoomRequest{Name: "Physics"})
	require.Nil(t, err)

	require.Nil(t, store.InsertMessage(ctx, &entity.Message{
		ID:        "m1",
		RoomID:    created.RoomID,
		SenderID:  admin.UserID,
		Text:      "welcome",
		CreatedAt: svc.Clock(),
	}))

	summaries, err := svc.ListRooms(ctx, admin.UserID)
	require.Nil(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Physics", summaries[0].Name)
	assert.Equal(t, entity.RoleAdmin, summaries[0].Role)
	assert.Equal(t, 1, summaries[0].Online)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "welcome", summaries[0].LastMessage.Text)
	assert.Equal(t, "alice", summaries[0].LastMessage.SenderName)
}
