package event_handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

// stalledStore hangs on one operation until the store timeout fires.
type stalledStore struct {
	*memory_repo.Store
	op string
}

func (s *stalledStore) stall(ctx context.Context, op string) *app_error.AppError {
	if op != s.op {
		return nil
	}
	<-ctx.Done()
	return app_error.Internal(ctx.Err().Error(), "store")
}

func (s *stalledStore) InsertMessage(ctx context.Context, msg *entity.Message) *app_error.AppError {
	if err := s.stall(ctx, "insert_message"); err != nil {
		return err
	}
	return s.Store.InsertMessage(ctx, msg)
}

func (s *stalledStore) SetVote(ctx context.Context, pollID, userID string, optionIndex int) (map[string]int, *app_error.AppError) {
	if err := s.stall(ctx, "set_vote"); err != nil {
		return nil, err
	}
	return s.Store.SetVote(ctx, pollID, userID, optionIndex)
}

func (s *stalledStore) ToggleReaction(ctx context.Context, messageID, emoji, userID string) ([]string, *app_error.AppError) {
	if err := s.stall(ctx, "toggle_reaction"); err != nil {
		return nil, err
	}
	return s.Store.ToggleReaction(ctx, messageID, emoji, userID)
}

func (s *stalledStore) SetMuted(ctx context.Context, roomID, userID string, muted bool) *app_error.AppError {
	if err := s.stall(ctx, "set_muted"); err != nil {
		return err
	}
	return s.Store.SetMuted(ctx, roomID, userID, muted)
}

func (s *stalledStore) ListMemberships(ctx context.Context, roomID string) ([]*entity.RoomMember, *app_error.AppError) {
	if err := s.stall(ctx, "list_memberships"); err != nil {
		return nil, err
	}
	return s.Store.ListMemberships(ctx, roomID)
}

func TestStoreTimeout_TakesFailurePath(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		event   string
		data    func(messageID, pollID, bobID string) map[string]any
		wantErr string
	}{
		{
			name:    "public message",
			op:      "insert_message",
			event:   "send_public_message",
			data:    func(_, _, _ string) map[string]any { return map[string]any{"text": "hello"} },
			wantErr: "send failed",
		},
		{
			name:    "private message",
			op:      "insert_message",
			event:   "send_private_message",
			data:    func(_, _, bobID string) map[string]any { return map[string]any{"receiverUserId": bobID, "text": "psst"} },
			wantErr: "send failed",
		},
		{
			name:    "vote",
			op:      "set_vote",
			event:   "vote_poll",
			data:    func(_, pollID, _ string) map[string]any { return map[string]any{"pollId": pollID, "optionIndex": 1} },
			wantErr: "failed to vote",
		},
		{
			name:    "mute",
			op:      "set_muted",
			event:   "admin_action",
			data:    func(_, _, bobID string) map[string]any { return map[string]any{"action": "mute", "targetUserId": bobID} },
			wantErr: "server error",
		},
		{
			name:  "reaction",
			op:    "toggle_reaction",
			event: "react_message",
			data: func(messageID, _, _ string) map[string]any {
				return map[string]any{"messageId": messageID, "emoji": "👍"}
			},
		},
		{
			name:  "member list",
			op:    "list_memberships",
			event: "toggle_anonymous",
			data:  func(_, _, _ string) map[string]any { return map[string]any{"anonymous": true} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.connect("alice")
			b := f.connect("bob")
			roomID, code := f.createRoom(a)
			f.join(b, code)

			f.sendOK(a, "send_public_message", map[string]any{"text": "first"})
			f.sendOK(a, "create_poll", map[string]any{"question": "Q", "options": []string{"x", "y"}})
			frames := drain(t, b)
			messageID := ofType(frames, websocket.EventPublicMessage)[0].data()["id"].(string)
			pollID := ofType(frames, websocket.EventPollCreated)[0].data()["id"].(string)
			drain(t, a)

			stalled := &stalledStore{Store: f.store, op: tt.op}
			f.deps.Chats = stalled
			f.deps.Rooms = stalled
			f.deps.StoreTimeout = 20 * time.Millisecond

			ack := f.send(a, tt.event, tt.data(messageID, pollID, b.UserID))
			if tt.wantErr == "" {
				assert.Nil(t, ack)
			} else {
				require.NotNil(t, ack)
				assert.Equal(t, false, ack["ok"])
				assert.Equal(t, tt.wantErr, ack["error"])
			}

			assert.Empty(t, drain(t, a))
			assert.Empty(t, drain(t, b))
			assert.Equal(t, 1, f.store.MessageCount(roomID))
		})
	}
}
