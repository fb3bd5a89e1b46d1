// Package mastergate owns the enable line that must be active for any output
// to have effect.
package mastergate

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/autooff"
	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/model"
)

type Gate struct {
	driver  gpio.Driver
	pin     model.GPIOPin
	timer   *autooff.Timer
	now     func() time.Time
	enabled bool
}

func New(driver gpio.Driver, pin model.GPIOPin, timer *autooff.Timer, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		driver: driver,
		pin:    pin,
		timer:  timer,
		now:    now,
	}
}

func (g *Gate) Pin() model.GPIOPin {
	return g.pin
}

// Enable drives the gate active and (re)arms the auto-off timer, even when
// already enabled.
func (g *Gate) Enable() error {
	if err := g.driver.Set(g.pin, true); err != nil {
		return fmt.Errorf("enable gate pin %d: %w", g.pin.Number, err)
	}
	if !g.enabled {
		log.Info().Int("gpio", g.pin.Number).Msg("Gate enabled")
	}
	g.enabled = true
	g.timer.Arm(g.now())
	return nil
}

// Disable drives the gate inactive. The timer is left as is.
func (g *Gate) Disable() error {
	if err := g.driver.Set(g.pin, false); err != nil {
		return fmt.Errorf("disable gate pin %d: %w", g.pin.Number, err)
	}
	if g.enabled {
		log.Info().Int("gpio", g.pin.Number).Msg("Gate disabled")
	}
	g.enabled = false
	return nil
}

func (g *Gate) IsEnabled() bool {
	return g.enabled
}
