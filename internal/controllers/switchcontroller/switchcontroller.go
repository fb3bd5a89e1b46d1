package switchcontroller

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/autooff"
	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/mastergate"
	"github.com/thatsimonsguy/padswitch/internal/model"
	"github.com/thatsimonsguy/padswitch/internal/outputbank"
)

// HardwareError wraps a failed line write.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s: hardware failure: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

// EventSink receives every state transition.
type EventSink interface {
	Publish(ev model.Event)
}

type discardSink struct{}

func (discardSink) Publish(model.Event) {}

type Options struct {
	DefaultTimeout time.Duration
	// ClearPinOnAutoOff drives every output inactive when the timer fires.
	// When false the last selection is kept and reported while the gate is off.
	ClearPinOnAutoOff bool
	Clock             func() time.Time
	Events            EventSink
}

// Controller is the single-output state machine. It is not safe for
// concurrent use; Runner serializes access.
type Controller struct {
	bank  *outputbank.Bank
	gate  *mastergate.Gate
	timer *autooff.Timer

	defaultTimeout    time.Duration
	clearPinOnAutoOff bool
	now               func() time.Time
	events            EventSink

	// offPending is set while a forced gate-off has not reached the line.
	// Tick retries it until the write succeeds.
	offPending bool
}

func New(driver gpio.Driver, outputs []model.GPIOPin, gatePin model.GPIOPin, opts Options) *Controller {
	if opts.DefaultTimeout < autooff.MinDuration {
		opts.DefaultTimeout = autooff.DefaultDuration
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Events == nil {
		opts.Events = discardSink{}
	}

	timer := autooff.New(opts.DefaultTimeout)
	return &Controller{
		bank:              outputbank.New(driver, outputs),
		gate:              mastergate.New(driver, gatePin, timer, opts.Clock),
		timer:             timer,
		defaultTimeout:    opts.DefaultTimeout,
		clearPinOnAutoOff: opts.ClearPinOnAutoOff,
		now:               opts.Clock,
		events:            opts.Events,
	}
}

// Init puts the hardware in the boot state: every output inactive, gate off,
// timer unarmed.
func (c *Controller) Init() error {
	c.timer.Cancel()
	if err := c.gate.Disable(); err != nil {
		return &HardwareError{Op: "init", Err: err}
	}
	c.offPending = false
	if err := c.bank.DeactivateAll(); err != nil {
		return &HardwareError{Op: "init", Err: err}
	}
	log.Info().
		Int("outputs", c.bank.Len()).
		Int("gate_gpio", c.gate.Pin().Number).
		Dur("default_timeout", c.defaultTimeout).
		Msg("Switch controller initialized")
	c.emit(model.EventStartup, "system")
	return nil
}

func (c *Controller) Status() model.Status {
	return model.Status{
		ActivePin:   c.bank.Active(),
		GateEnabled: c.gate.IsEnabled(),
	}
}

// Remaining returns the time left on the auto-off timer.
func (c *Controller) Remaining() time.Duration {
	return c.timer.Remaining(c.now())
}

// Activate selects pin and makes sure the gate is on with a fresh deadline.
// A zero timeout selects the default duration.
func (c *Controller) Activate(pin int, timeout time.Duration) (model.Status, error) {
	if err := c.bank.Validate(pin); err != nil {
		return c.Status(), err
	}
	d, err := c.resolveTimeout(timeout)
	if err != nil {
		return c.Status(), err
	}

	if err := c.bank.Activate(pin); err != nil {
		return c.fail("activate", err)
	}
	if !c.gate.IsEnabled() || c.offPending {
		if err := c.gate.Enable(); err != nil {
			return c.fail("activate", err)
		}
	}
	if err := c.rearm(d); err != nil {
		return c.Status(), err
	}

	log.Info().Int("pin", pin).Dur("timeout", d).Msg("Output activated")
	c.emit(model.EventActivate, "api")
	return c.Status(), nil
}

// Deactivate turns every output off, and the gate too when disableGate is set.
func (c *Controller) Deactivate(disableGate bool) (model.Status, error) {
	kind := model.EventDeactivate
	if disableGate {
		kind = model.EventDisable
		c.timer.Cancel()
		if err := c.gate.Disable(); err != nil {
			return c.fail("disable", err)
		}
		c.offPending = false
	}
	if err := c.bank.DeactivateAll(); err != nil {
		return c.fail("deactivate", err)
	}

	log.Info().Bool("disable_gate", disableGate).Msg("Outputs deactivated")
	c.emit(kind, "api")
	return c.Status(), nil
}

// Enable turns the gate on and re-arms the timer. The selection is untouched.
func (c *Controller) Enable(timeout time.Duration) (model.Status, error) {
	return c.refresh(model.EventEnable, timeout)
}

// Ping refreshes the deadline. It enables the gate if needed and never
// changes an output line.
func (c *Controller) Ping(timeout time.Duration) (model.Status, error) {
	return c.refresh(model.EventPing, timeout)
}

func (c *Controller) refresh(kind model.EventKind, timeout time.Duration) (model.Status, error) {
	d, err := c.resolveTimeout(timeout)
	if err != nil {
		return c.Status(), err
	}
	if err := c.gate.Enable(); err != nil {
		return c.fail(string(kind), err)
	}
	if err := c.rearm(d); err != nil {
		return c.Status(), err
	}

	log.Debug().Str("op", string(kind)).Dur("timeout", d).Msg("Auto-off deadline refreshed")
	c.emit(kind, "api")
	return c.Status(), nil
}

// Tick advances the auto-off timer. It reports whether the gate-off path ran,
// either because the timer fired or because an earlier forced gate-off failed
// and is being retried.
func (c *Controller) Tick() (bool, error) {
	if c.timer.Update(c.now()) {
		log.Warn().
			Int("pin", c.bank.Active()).
			Dur("timeout", c.timer.Duration()).
			Msg("Auto-off timer expired, disabling gate")
	} else if c.offPending {
		log.Warn().Int("gpio", c.gate.Pin().Number).Msg("Retrying gate disable")
	} else {
		return false, nil
	}

	if err := c.gate.Disable(); err != nil {
		c.offPending = true
		return true, &HardwareError{Op: "auto-off", Err: err}
	}
	c.offPending = false
	if c.clearPinOnAutoOff {
		if err := c.bank.DeactivateAll(); err != nil {
			return true, &HardwareError{Op: "auto-off", Err: err}
		}
	}
	c.emit(model.EventAutoOff, "timer")
	return true, nil
}

// Shutdown drives everything to the safe state. Errors are logged and the
// remaining steps still run.
func (c *Controller) Shutdown() error {
	c.timer.Cancel()
	var first error
	if err := c.gate.Disable(); err != nil {
		log.Error().Err(err).Msg("Failed to disable gate during shutdown")
		first = err
	} else {
		c.offPending = false
	}
	if err := c.bank.DeactivateAll(); err != nil {
		log.Error().Err(err).Msg("Failed to deactivate outputs during shutdown")
		if first == nil {
			first = err
		}
	}
	c.emit(model.EventShutdown, "system")
	if first != nil {
		return &HardwareError{Op: "shutdown", Err: first}
	}
	return nil
}

func (c *Controller) resolveTimeout(timeout time.Duration) (time.Duration, error) {
	if timeout == 0 {
		return c.defaultTimeout, nil
	}
	if err := autooff.Validate(timeout); err != nil {
		return 0, err
	}
	return timeout, nil
}

// rearm applies d and restarts the countdown. It runs only after the line
// writes of a command went through, so a failed command leaves the configured
// duration alone.
func (c *Controller) rearm(d time.Duration) error {
	if err := c.timer.SetDuration(d); err != nil {
		return err
	}
	c.timer.Arm(c.now())
	c.offPending = false
	return nil
}

// fail wraps a write error and makes a best-effort attempt to turn the gate off.
func (c *Controller) fail(op string, err error) (model.Status, error) {
	log.Error().Err(err).Str("op", op).Msg("GPIO write failed, forcing gate off")
	c.timer.Cancel()
	if derr := c.gate.Disable(); derr != nil {
		log.Error().Err(derr).Msg("Failed to force gate off, retrying on next tick")
		c.offPending = true
	} else {
		c.offPending = false
	}
	return c.Status(), &HardwareError{Op: op, Err: err}
}

func (c *Controller) emit(kind model.EventKind, source string) {
	st := c.Status()
	var timeout time.Duration
	if c.timer.Armed() {
		timeout = c.timer.Duration()
	}
	c.events.Publish(model.Event{
		Time:    c.now(),
		Kind:    kind,
		Pin:     st.ActivePin,
		Enabled: st.GateEnabled,
		Timeout: timeout,
		Source:  source,
	})
}
