package event_handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	chat_service "github.com/xenn00/classroom-chat/internal/use-case/chat-case"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	moderation_service "github.com/xenn00/classroom-chat/internal/use-case/moderation-case"
	poll_service "github.com/xenn00/classroom-chat/internal/use-case/poll-case"
	room_service "github.com/xenn00/classroom-chat/internal/use-case/room-case"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

type fixture struct {
	t       *testing.T
	store   *memory_repo.Store
	hub     *websocket.Hub
	deps    *core.Deps
	handler *EventHandler
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		store: memory_repo.NewStore(),
		hub:   websocket.NewHub(),
		now:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	t.Cleanup(f.hub.Close)

	f.deps = &core.Deps{
		Users:        f.store,
		Rooms:        f.store,
		Chats:        f.store,
		Hub:          f.hub,
		StoreTimeout: time.Second,
		Now:          func() time.Time { return f.now },
	}

	locks := utils.NewKeyMutex()
	f.handler = NewEventHandler(
		room_service.NewRoomService(f.deps, 0),
		chat_service.NewChatService(f.deps, locks),
		poll_service.NewPollService(f.deps, locks),
		moderation_service.NewModerationService(f.deps, locks),
	)
	return f
}

// connect logs a user in by name and opens one connection for them.
func (f *fixture) connect(username string) *websocket.Client {
	f.t.Helper()

	user, err := f.store.FindOrCreateByUsername(context.Background(), username)
	require.Nil(f.t, err)

	c := websocket.NewClient(nil, user.ID, username, nil)
	f.hub.Connect(c)
	return c
}

// send dispatches one event and returns its ack as a map, or nil for
// fire-and-forget events.
func (f *fixture) send(c *websocket.Client, event string, data any) map[string]any {
	f.t.Helper()

	var raw []byte
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(f.t, err)
	}

	ack := f.handler.Dispatch(context.Background(), c, &websocket.IncomingMessage{Type: event, ID: "req", Data: raw})
	if ack == nil {
		return nil
	}
	return toMap(f.t, ack)
}

// sendOK is send that requires a successful ack.
func (f *fixture) sendOK(c *websocket.Client, event string, data any) map[string]any {
	f.t.Helper()

	ack := f.send(c, event, data)
	require.NotNil(f.t, ack)
	require.Equal(f.t, true, ack["ok"], "ack: %v", ack)
	return ack
}

func (f *fixture) createRoom(admin *websocket.Client) (roomID, code string) {
	f.t.Helper()

	ack := f.sendOK(admin, "create_room", map[string]any{})
	return ack["roomId"].(string), ack["roomCode"].(string)
}

func (f *fixture) join(c *websocket.Client, code string) map[string]any {
	f.t.Helper()
	return f.sendOK(c, "join_room", map[string]any{"roomCode": code})
}

type frame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}

func (fr frame) data() map[string]any {
	m, _ := fr.Data.(map[string]any)
	return m
}

func drain(t *testing.T, c *websocket.Client) []frame {
	t.Helper()

	var frames []frame
	for {
		select {
		case raw := <-c.Send:
			var fr frame
			require.NoError(t, json.Unmarshal(raw, &fr))
			frames = append(frames, fr)
		default:
			return frames
		}
	}
}

func drainAll(t *testing.T, clients ...*websocket.Client) {
	t.Helper()
	for _, c := range clients {
		drain(t, c)
	}
}

func ofType(frames []frame, event string) []frame {
	var out []frame
	for _, fr := range frames {
		if fr.Type == event {
			out = append(out, fr)
		}
	}
	return out
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}

func memberUserIDs(fr frame) []string {
	items, _ := fr.Data.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(map[string]any)["userId"].(string))
	}
	return out
}
