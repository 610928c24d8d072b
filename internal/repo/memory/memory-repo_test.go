package memory_repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/entity"
	"gorm.io/datatypes"
)

func newRoom(t *testing.T, s *Store, id, code string) {
	t.Helper()

	room := &entity.Room{
		ID:        id,
		Code:      code,
		CreatorID: "admin",
		Settings:  datatypes.NewJSONType(entity.RoomSettings{PrivateChatEnabled: true}),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.Nil(t, s.CreateRoom(context.Background(), room, &entity.RoomMember{UserID: "admin", Role: entity.RoleAdmin}))
}

func TestCreateRoom_CodeUniqueAmongLiveRooms(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	newRoom(t, s, "r1", "ABCDEF")

	err := s.CreateRoom(ctx, &entity.Room{ID: "r2", Code: "ABCDEF"}, &entity.RoomMember{UserID: "u"})
	require.NotNil(t, err)
	assert.True(t, err.IsConflict())

	require.Nil(t, s.SoftDeleteRoom(ctx, "r1"))
	assert.Nil(t, s.CreateRoom(ctx, &entity.Room{ID: "r3", Code: "ABCDEF"}, &entity.RoomMember{UserID: "u"}), "a deleted room frees its code")

	_, findErr := s.FindRoomByID(ctx, "r1")
	assert.True(t, findErr.IsNotFound())
	_, findErr = s.FindMembership(ctx, "r1", "admin")
	assert.True(t, findErr.IsNotFound(), "memberships go with the room")
}

func TestEnsureMembership_KeepsExistingRole(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	newRoom(t, s, "r1", "ABCDEF")

	m, err := s.EnsureMembership(ctx, "r1", "admin", entity.RoleMember)
	require.Nil(t, err)
	assert.True(t, m.IsAdmin())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.EnsureMembership(ctx, "r1", "student", entity.RoleMember)
		}()
	}
	wg.Wait()

	members, err := s.ListMemberships(ctx, "r1")
	require.Nil(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "admin", members[0].UserID)
}

func TestMarkSeen_Idempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "m1", RoomID: "r1", SenderID: "a", SeenBy: []string{"a"}}))

	seenBy, changed, err := s.MarkSeen(ctx, "m1", "b")
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b"}, seenBy)

	seenBy, changed, err = s.MarkSeen(ctx, "m1", "b")
	require.Nil(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"a", "b"}, seenBy)

	_, _, err = s.MarkSeen(ctx, "missing", "b")
	assert.True(t, err.IsNotFound())
}

func TestToggleReaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "m1", RoomID: "r1"}))

	reactors, err := s.ToggleReaction(ctx, "m1", "👍", "a")
	require.Nil(t, err)
	assert.Equal(t, []string{"a"}, reactors)

	reactors, _ = s.ToggleReaction(ctx, "m1", "👍", "b")
	assert.Equal(t, []string{"a", "b"}, reactors)

	reactors, _ = s.ToggleReaction(ctx, "m1", "👍", "a")
	assert.Equal(t, []string{"b"}, reactors)

	msg, _ := s.FindMessageByID(ctx, "m1")
	assert.Equal(t, map[string][]string{"👍": {"b"}}, msg.Reactions)
}

func TestMessagesAreReturnedAsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "m1", RoomID: "r1", SeenBy: []string{"a"}}))

	msg, _ := s.FindMessageByID(ctx, "m1")
	msg.SeenBy[0] = "mutated"

	again, _ := s.FindMessageByID(ctx, "m1")
	assert.Equal(t, []string{"a"}, again.SeenBy)
}

func TestListPublicMessages_NewestWindowInOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.Nil(t, s.InsertMessage(ctx, &entity.Message{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    "r1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "p1", RoomID: "r1", SenderID: "a", ReceiverID: "b", CreatedAt: base.Add(time.Hour)}))

	messages, err := s.ListPublicMessages(ctx, "r1", 3)
	require.Nil(t, err)
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m2", "m3", "m4"}, ids)

	private, err := s.ListPrivateMessages(ctx, "r1", "b", "a", 10)
	require.Nil(t, err)
	require.Len(t, private, 1)

	latest, err := s.LatestMessage(ctx, "r1")
	require.Nil(t, err)
	assert.Equal(t, "m4", latest.ID)
}

func TestSetVote_ReplacesPreviousChoice(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.Nil(t, s.InsertPoll(ctx, &entity.Poll{ID: "p1", RoomID: "r1", Options: []string{"a", "b"}}))

	_, err := s.SetVote(ctx, "p1", "u1", 0)
	require.Nil(t, err)
	votes, err := s.SetVote(ctx, "p1", "u1", 1)
	require.Nil(t, err)
	assert.Equal(t, map[string]int{"u1": 1}, votes)

	_, err = s.SetVote(ctx, "missing", "u1", 0)
	assert.True(t, err.IsNotFound())
}

func TestPurgeRoom(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "m1", RoomID: "r1"}))
	require.Nil(t, s.InsertMessage(ctx, &entity.Message{ID: "m2", RoomID: "r2"}))
	require.Nil(t, s.InsertPoll(ctx, &entity.Poll{ID: "p1", RoomID: "r1"}))

	require.Nil(t, s.PurgeRoom(ctx, "r1"))

	assert.Zero(t, s.MessageCount("r1"))
	assert.Zero(t, s.PollCount("r1"))
	assert.Equal(t, 1, s.MessageCount("r2"))
}

func TestFindOrCreateByUsername(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, err := s.FindOrCreateByUsername(ctx, "alice")
	require.Nil(t, err)
	again, err := s.FindOrCreateByUsername(ctx, "alice")
	require.Nil(t, err)
	assert.Equal(t, a.ID, again.ID)

	users, err := s.FindUsersByIDs(ctx, []string{a.ID, "missing"})
	require.Nil(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}
