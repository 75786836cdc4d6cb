package bot

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/anime-bot/internal/bot/handlers"
	"github.com/Proton-105/anime-bot/internal/state"
)

// Dispatcher hands a message to whichever step the sender is part-way through.
// Steps are registered once while the bot is assembled, before any update
// arrives, so lookups need no locking.
type Dispatcher struct {
	fsm   state.StateMachine
	steps map[state.State]handlers.Handler
	log   *slog.Logger
}

func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{fsm: fsm, steps: make(map[state.State]handlers.Handler), log: log}
}

// Handle binds h to step s.
func (d *Dispatcher) Handle(s state.State, h handlers.Handler) {
	d.steps[s] = h
}

// Dispatch reports false when the sender has no pending step, leaving the
// message to the rest of the router. A step left behind by an older release,
// with nothing bound to it, is cleared so the user is not stuck.
func (d *Dispatcher) Dispatch(c telebot.Context) (bool, error) {
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	ctx := handlers.RequestContext(c)

	pending, err := d.fsm.GetState(ctx, sender.ID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
		return false, nil
	case err != nil:
		return false, err
	case pending == nil || pending.CurrentState == state.StateIdle:
		return false, nil
	}

	step, ok := d.steps[pending.CurrentState]
	if !ok {
		d.log.Warn("dropping orphaned step",
			slog.String("state", string(pending.CurrentState)),
			slog.Int64("user_id", sender.ID),
		)
		return false, d.fsm.ClearState(ctx, sender.ID)
	}

	c.Set(handlers.KeyState, pending)
	return true, step(c)
}
