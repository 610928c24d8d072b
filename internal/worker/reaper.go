package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/internal/dtos/chat_dto"
	"github.com/xenn00/classroom-chat/internal/metrics"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
)

const (
	ResultClosed = "closed"
	ResultFailed = "failed"
)

// Reaper closes expired rooms. It sweeps on a fixed interval, or on a cron
// schedule when one is configured.
type Reaper struct {
	deps     *core.Deps
	interval time.Duration
	cron     string
	wg       sync.WaitGroup
}

// NewReaper copies deps so roomTimeout bounds every store call made while
// closing one room.
func NewReaper(deps *core.Deps, interval time.Duration, cron string, roomTimeout time.Duration) (*Reaper, error) {
	if cron != "" && !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid reaper cron expression: %s", cron)
	}
	if cron == "" && interval <= 0 {
		return nil, fmt.Errorf("reaper interval must be positive, got %s", interval)
	}

	roomDeps := *deps
	if roomTimeout > 0 {
		roomDeps.StoreTimeout = roomTimeout
	}
	return &Reaper{deps: &roomDeps, interval: interval, cron: cron}, nil
}

func (r *Reaper) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.cron != "" {
			log.Info().Str("cron", r.cron).Msg("reaper started")
			r.runCron(ctx)
			return
		}
		log.Info().Dur("interval", r.interval).Msg("reaper started")
		r.runInterval(ctx)
	}()
}

func (r *Reaper) Wait() {
	r.wg.Wait()
	log.Info().Msg("reaper stopped")
}

func (r *Reaper) runInterval(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Reaper) runCron(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(r.cron, time.Now(), false)
		wait := time.Until(next)
		if err != nil {
			log.Error().Err(err).Str("cron", r.cron).Msg("reaper: failed to compute next tick")
			wait = 30 * time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err == nil {
				r.Sweep(ctx)
			}
		}
	}
}

// Sweep closes every expired room once. A failure or panic on one room is
// logged and the sweep moves on to the next. It returns the number of rooms
// closed.
func (r *Reaper) Sweep(ctx context.Context) int {
	storeCtx, cancel := r.deps.StoreCtx(ctx)
	rooms, err := r.deps.Rooms.FindExpiredRooms(storeCtx, r.deps.Clock())
	cancel()
	if err != nil {
		metrics.StoreFailures.WithLabelValues("find_expired_rooms").Inc()
		log.Error().Str("error", err.Message).Msg("reaper: failed to list expired rooms")
		return 0
	}

	closed := 0
	for _, room := range rooms {
		if r.reap(ctx, room.ID) {
			closed++
		}
	}
	if len(rooms) > 0 {
		log.Info().Int("expired", len(rooms)).Int("closed", closed).Msg("reaper: sweep finished")
	}
	return closed
}

func (r *Reaper) reap(ctx context.Context, roomID string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("roomID", roomID).Msg("reaper: room cleanup panicked")
			metrics.RoomsReaped.WithLabelValues(ResultFailed).Inc()
			ok = false
		}
	}()

	if err := r.deps.CloseRoom(ctx, roomID, chat_dto.CloseReasonExpired); err != nil {
		log.Error().Str("roomID", roomID).Str("error", err.Message).Msg("reaper: failed to close room")
		metrics.RoomsReaped.WithLabelValues(ResultFailed).Inc()
		return false
	}

	metrics.RoomsReaped.WithLabelValues(ResultClosed).Inc()
	log.Info().Str("roomID", roomID).Msg("reaper: room expired")
	return true
}
