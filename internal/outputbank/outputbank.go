// Package outputbank owns the fixed, ordered set of switchable output lines.
// At most one line is active at a time.
package outputbank

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/model"
)

// InvalidPinError is returned when a pin index is outside 0..Count-1.
type InvalidPinError struct {
	Pin   int
	Count int
}

func (e *InvalidPinError) Error() string {
	return fmt.Sprintf("invalid pin %d: must be between 0 and %d", e.Pin, e.Count-1)
}

type Bank struct {
	driver gpio.Driver
	pins   []model.GPIOPin
	active int
}

func New(driver gpio.Driver, pins []model.GPIOPin) *Bank {
	return &Bank{
		driver: driver,
		pins:   append([]model.GPIOPin(nil), pins...),
		active: model.NoPin,
	}
}

func (b *Bank) Len() int {
	return len(b.pins)
}

// Active returns the selected index or model.NoPin.
func (b *Bank) Active() int {
	return b.active
}

// Pins returns a copy of the configured lines in index order.
func (b *Bank) Pins() []model.GPIOPin {
	return append([]model.GPIOPin(nil), b.pins...)
}

// Validate reports whether pin is a usable index without touching any line.
func (b *Bank) Validate(pin int) error {
	if pin < 0 || pin >= len(b.pins) {
		return &InvalidPinError{Pin: pin, Count: len(b.pins)}
	}
	return nil
}

// DeactivateAll drives every line inactive and clears the selection.
// Every line is attempted even if an earlier write fails.
func (b *Bank) DeactivateAll() error {
	var errs []error
	for _, p := range b.pins {
		if err := b.driver.Set(p, false); err != nil {
			errs = append(errs, fmt.Errorf("deactivate pin %d: %w", p.Number, err))
		}
	}
	b.active = model.NoPin
	return errors.Join(errs...)
}

// Activate selects exactly one line. All lines are driven inactive first,
// so two lines are never active together.
func (b *Bank) Activate(pin int) error {
	if err := b.Validate(pin); err != nil {
		return err
	}
	if err := b.DeactivateAll(); err != nil {
		return err
	}

	p := b.pins[pin]
	log.Debug().Int("index", pin).Int("gpio", p.Number).Msg("Activating output")
	if err := b.driver.Set(p, true); err != nil {
		return fmt.Errorf("activate pin %d: %w", p.Number, err)
	}
	b.active = pin
	return nil
}

// Levels reads back whether each line is at its active level, in index order.
func (b *Bank) Levels() ([]bool, error) {
	levels := make([]bool, len(b.pins))
	for i, p := range b.pins {
		active, err := b.driver.Active(p)
		if err != nil {
			return nil, fmt.Errorf("read pin %d: %w", p.Number, err)
		}
		levels[i] = active
	}
	return levels, nil
}
