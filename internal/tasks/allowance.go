package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/karimhafez/backend-pos/internal/lock"
)

// TypeAllowanceReset identifies the scheduled monthly allowance reset task.
const TypeAllowanceReset = "allowance:reset"

const resetLockKey = "locks:allowance-reset"

// NewAllowanceResetTask builds the task enqueued by the scheduler.
func NewAllowanceResetTask() *asynq.Task {
	return asynq.NewTask(TypeAllowanceReset, nil)
}

// Resetter restores every staff member's bottle counters to the maximum.
type Resetter interface {
	ResetAll(ctx context.Context) error
}

// AllowanceHandler processes allowance reset tasks. The Redis lock keeps the
// reset single-shot when multiple worker replicas receive the same schedule
// tick.
type AllowanceHandler struct {
	Staff  Resetter
	Locker lock.Locker
	Log    zerolog.Logger
}

// HandleAllowanceReset implements asynq.HandlerFunc for TypeAllowanceReset.
func (h AllowanceHandler) HandleAllowanceReset(ctx context.Context, _ *asynq.Task) error {
	return h.Locker.WithLock(ctx, resetLockKey, 5*time.Minute, func(ctx context.Context) error {
		if err := h.Staff.ResetAll(ctx); err != nil {
			h.Log.Error().Err(err).Msg("allowance reset failed")
			return err
		}
		h.Log.Info().Msg("staff bottle allowances reset")
		return nil
	})
}

// Register attaches the handler to the worker mux.
func (h AllowanceHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAllowanceReset, h.HandleAllowanceReset)
}
