package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/websocket"
	"gorm.io/datatypes"
)

// flakyStore fails to purge one room.
type flakyStore struct {
	*memory_repo.Store
	failRoom string
}

func (s *flakyStore) PurgeRoom(ctx context.Context, roomID string) *app_error.AppError {
	if roomID == s.failRoom {
		return app_error.Internal("connection reset", "db")
	}
	return s.Store.PurgeRoom(ctx, roomID)
}

type reaperFixture struct {
	store *memory_repo.Store
	hub   *websocket.Hub
	deps  *core.Deps
	now   time.Time
}

func newReaperFixture(t *testing.T) *reaperFixture {
	f := &reaperFixture{
		store: memory_repo.NewStore(),
		hub:   websocket.NewHub(),
		now:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	t.Cleanup(f.hub.Close)

	f.deps = &core.Deps{
		Users: f.store,
		Rooms: f.store,
		Chats: f.store,
		Hub:   f.hub,
		Now:   func() time.Time { return f.now },
	}
	return f
}

func (f *reaperFixture) room(t *testing.T, code string, expiresAt time.Time) string {
	t.Helper()

	room := &entity.Room{
		ID:        uuid.New().String(),
		Name:      "Room " + code,
		Code:      code,
		CreatorID: uuid.New().String(),
		Settings:  datatypes.NewJSONType(entity.RoomSettings{PrivateChatEnabled: true, DurationMinutes: 30}),
		ExpiresAt: expiresAt,
	}
	admin := &entity.RoomMember{UserID: room.CreatorID, Role: entity.RoleAdmin}
	require.Nil(t, f.store.CreateRoom(context.Background(), room, admin))

	require.Nil(t, f.store.InsertMessage(context.Background(), &entity.Message{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		SenderID:  room.CreatorID,
		Text:      "hello",
		CreatedAt: f.now.Add(-time.Minute),
	}))
	return room.ID
}

func (f *reaperFixture) present(roomID, username string) *websocket.Client {
	c := websocket.NewClient(nil, uuid.New().String(), username, nil)
	f.hub.Connect(c)
	f.hub.JoinRoom(c.ID, roomID, false)
	return c
}

func closedReasons(t *testing.T, c *websocket.Client) []string {
	t.Helper()

	var reasons []string
	for {
		select {
		case raw := <-c.Send:
			var push struct {
				Type string `json:"type"`
				Data struct {
					Reason string `json:"reason"`
				} `json:"data"`
			}
			require.NoError(t, jsoniter.Unmarshal(raw, &push))
			if push.Type == websocket.EventRoomClosed {
				reasons = append(reasons, push.Data.Reason)
			}
		default:
			return reasons
		}
	}
}

func TestSweep_ClosesExpiredRoomsOnce(t *testing.T) {
	f := newReaperFixture(t)
	expired := f.room(t, "AAAAAA", f.now.Add(-time.Second))
	fresh := f.room(t, "BBBBBB", f.now.Add(10*time.Minute))

	inExpired := f.present(expired, "alice")
	inFresh := f.present(fresh, "bob")

	reaper, err := NewReaper(f.deps, time.Minute, "", time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, reaper.Sweep(context.Background()))
	assert.Equal(t, 0, reaper.Sweep(context.Background()), "a closed room is not reaped again")

	assert.Equal(t, []string{"expired"}, closedReasons(t, inExpired))
	assert.Empty(t, closedReasons(t, inFresh))

	assert.Zero(t, f.store.MessageCount(expired))
	assert.Equal(t, 1, f.store.MessageCount(fresh))

	_, findErr := f.store.FindRoomByID(context.Background(), expired)
	assert.True(t, findErr.IsNotFound())

	sess, _ := f.hub.Registry.Lookup(inExpired.ID)
	assert.False(t, sess.InRoom())
	assert.Empty(t, f.hub.Presence.Connections(expired))
}

func TestSweep_ExpiryBoundaryIsInclusive(t *testing.T) {
	f := newReaperFixture(t)
	f.room(t, "CCCCCC", f.now)

	reaper, err := NewReaper(f.deps, time.Minute, "", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, reaper.Sweep(context.Background()))
}

func TestSweep_OneFailingRoomDoesNotStopTheRest(t *testing.T) {
	f := newReaperFixture(t)
	broken := f.room(t, "DDDDDD", f.now.Add(-2*time.Minute))
	healthy := f.room(t, "EEEEEE", f.now.Add(-time.Minute))

	flaky := &flakyStore{Store: f.store, failRoom: broken}
	f.deps.Chats = flaky

	reaper, err := NewReaper(f.deps, time.Minute, "", time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, reaper.Sweep(context.Background()))

	_, findErr := f.store.FindRoomByID(context.Background(), healthy)
	assert.True(t, findErr.IsNotFound())

	room, findErr := f.store.FindRoomByID(context.Background(), broken)
	require.Nil(t, findErr)
	assert.Equal(t, broken, room.ID, "the failed room is retried on the next sweep")

	flaky.failRoom = ""
	assert.Equal(t, 1, reaper.Sweep(context.Background()))
}

func TestSweep_RecoversFromPanic(t *testing.T) {
	f := newReaperFixture(t)
	f.room(t, "FFFFFF", f.now.Add(-time.Minute))
	f.deps.Chats = nil

	reaper, err := NewReaper(f.deps, time.Minute, "", 0)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.Equal(t, 0, reaper.Sweep(context.Background()))
	})
}

func TestNewReaper_Validation(t *testing.T) {
	f := newReaperFixture(t)

	_, err := NewReaper(f.deps, time.Minute, "not a cron", 0)
	assert.Error(t, err)

	_, err = NewReaper(f.deps, 0, "", 0)
	assert.Error(t, err)

	reaper, err := NewReaper(f.deps, 0, "*/5 * * * *", 0)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", reaper.cron)
}

func TestNewReaper_RoomTimeoutDoesNotTouchSharedDeps(t *testing.T) {
	f := newReaperFixture(t)
	f.deps.StoreTimeout = 5 * time.Second

	reaper, err := NewReaper(f.deps, time.Minute, "", 20*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, reaper.deps.StoreTimeout)
	assert.Equal(t, 5*time.Second, f.deps.StoreTimeout)
}

func TestReaper_StopsWithContext(t *testing.T) {
	f := newReaperFixture(t)
	expired := f.room(t, "GGGGGG", f.now.Add(-time.Minute))

	reaper, err := NewReaper(f.deps, 10*time.Millisecond, "", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	reaper.Start(ctx)

	assert.Eventually(t, func() bool {
		_, err := f.store.FindRoomByID(context.Background(), expired)
		return err.IsNotFound()
	}, time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		reaper.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
