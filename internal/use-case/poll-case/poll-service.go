package poll_service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/entity"
	app_error "github.com/xenn00/classroom-chat/internal/errors"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/websocket"
)

const (
	errInvalidPoll   = "invalid poll data"
	errCreateFailed  = "failed to create poll"
	errPollNotFound  = "poll not found"
	errInvalidOption = "invalid option"
	errVoteFailed    = "failed to vote"
)

type PollService struct {
	*core.Deps
	locks *utils.KeyMutex
}

func NewPollService(deps *core.Deps, locks *utils.KeyMutex) PollServiceContract {
	if locks == nil {
		locks = utils.NewKeyMutex()
	}
	return &PollService{Deps: deps, locks: locks}
}

func (p *PollService) CreatePoll(ctx context.Context, connID string, req chat_dto.CreatePollRequest) *app_error.AppError {
	sess, err := p.Session(connID)
	if err != nil {
		return err
	}

	question, options, ok := normalizePoll(req)
	if !ok {
		return app_error.Validation(errInvalidPoll)
	}

	poll := &entity.Poll{
		ID:        uuid.New().String(),
		RoomID:    sess.RoomID,
		CreatorID: sess.UserID,
		Question:  question,
		Options:   options,
		Votes:     map[string]int{},
		CreatedAt: p.Clock(),
	}

	storeCtx, cancel := p.StoreCtx(ctx)
	defer cancel()

	if err := p.Chats.InsertPoll(storeCtx, poll); err != nil {
		return core.Fault("insert_poll", err, errCreateFailed)
	}

	log.Debug().Str("roomID", sess.RoomID).Str("pollID", poll.ID).Int("options", len(options)).Msg("poll created")
	p.Hub.ToRoom(sess.RoomID, websocket.EventPollCreated, chat_dto.NewPollPayload(poll))
	return nil
}

// normalizePoll trims the question and drops empty options, capping the rest.
func normalizePoll(req chat_dto.CreatePollRequest) (string, []string, bool) {
	options := make([]string, 0, len(req.Options))
	for _, o := range req.Options {
		if len(options) == core.MaxOptions {
			break
		}
		if o = core.Clip(o, core.MaxOptionLength); o != "" {
			options = append(options, o)
		}
	}
	question := core.Clip(req.Question, core.MaxQuestionLength)
	if question == "" || len(options) < 2 {
		return "", nil, false
	}
	return question, options, true
}

// Vote overwrites any earlier vote by the caller and broadcasts the whole
// vote map.
func (p *PollService) Vote(ctx context.Context, connID string, req chat_dto.VotePollRequest) *app_error.AppError {
	sess, err := p.Session(connID)
	if err != nil {
		return err
	}
	if req.OptionIndex == nil {
		return app_error.Validation(errInvalidOption)
	}

	storeCtx, cancel := p.StoreCtx(ctx)
	defer cancel()

	poll, err := p.Chats.FindPollByID(storeCtx, req.PollID)
	if err != nil {
		if err.IsNotFound() {
			return app_error.NotFound(errPollNotFound)
		}
		return core.Fault("find_poll", err, errVoteFailed)
	}
	if poll.RoomID != sess.RoomID {
		return app_error.NotFound(errPollNotFound)
	}

	idx := *req.OptionIndex
	if idx < 0 || idx >= len(poll.Options) {
		return app_error.Validation(errInvalidOption)
	}

	unlock := p.locks.Lock("poll:" + poll.ID)
	defer unlock()

	votes, err := p.Chats.SetVote(storeCtx, poll.ID, sess.UserID, idx)
	if err != nil {
		if err.IsNotFound() {
			return app_error.NotFound(errPollNotFound)
		}
		return core.Fault("set_vote", err, errVoteFailed)
	}

	p.Hub.ToRoom(sess.RoomID, websocket.EventPollUpdated, chat_dto.PollUpdatedPayload{ID: poll.ID, Votes: votes})
	return nil
}
