package switchcontroller

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// ErrStopped is returned for commands submitted after the loop has exited.
var ErrStopped = errors.New("switch controller loop is not running")

type result struct {
	status model.Status
	err    error
}

type command struct {
	op    func(c *Controller) (model.Status, error)
	reply chan result
}

// Runner is the only goroutine that touches the Controller. HTTP handlers
// submit commands; the timer is ticked between commands.
type Runner struct {
	ctrl     *Controller
	commands chan command
	done     chan struct{}
}

func NewRunner(ctrl *Controller) *Runner {
	return &Runner{
		ctrl:     ctrl,
		commands: make(chan command),
		done:     make(chan struct{}),
	}
}

// Run processes commands and ticks until ctx is cancelled, then drives the
// hardware to the safe state.
func (r *Runner) Run(ctx context.Context, tick <-chan time.Time) error {
	defer close(r.done)
	log.Info().Msg("Starting switch controller loop")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Switch controller loop stopping")
			return r.ctrl.Shutdown()

		case <-tick:
			if _, err := r.ctrl.Tick(); err != nil {
				log.Error().Err(err).Msg("Auto-off failed")
			}

		case cmd := <-r.commands:
			st, err := cmd.op(r.ctrl)
			cmd.reply <- result{status: st, err: err}
		}
	}
}

// Do runs op on the loop goroutine and waits for its result.
func (r *Runner) Do(ctx context.Context, op func(c *Controller) (model.Status, error)) (model.Status, error) {
	cmd := command{op: op, reply: make(chan result, 1)}

	select {
	case r.commands <- cmd:
	case <-r.done:
		return model.Status{ActivePin: model.NoPin}, ErrStopped
	case <-ctx.Done():
		return model.Status{ActivePin: model.NoPin}, ctx.Err()
	}

	// once accepted, the loop always answers
	res := <-cmd.reply
	return res.status, res.err
}

func (r *Runner) Activate(ctx context.Context, pin int, timeout time.Duration) (model.Status, error) {
	return r.Do(ctx, func(c *Controller) (model.Status, error) {
		return c.Activate(pin, timeout)
	})
}

func (r *Runner) Deactivate(ctx context.Context, disableGate bool) (model.Status, error) {
	return r.Do(ctx, func(c *Controller) (model.Status, error) {
		return c.Deactivate(disableGate)
	})
}

func (r *Runner) Enable(ctx context.Context, timeout time.Duration) (model.Status, error) {
	return r.Do(ctx, func(c *Controller) (model.Status, error) {
		return c.Enable(timeout)
	})
}

func (r *Runner) Ping(ctx context.Context, timeout time.Duration) (model.Status, error) {
	return r.Do(ctx, func(c *Controller) (model.Status, error) {
		return c.Ping(timeout)
	})
}

func (r *Runner) Status(ctx context.Context) (model.Status, error) {
	return r.Do(ctx, func(c *Controller) (model.Status, error) {
		return c.Status(), nil
	})
}
