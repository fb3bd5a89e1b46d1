// Package gpio turns logical line states into physical levels.
// Several backends are available; all of them honour each pin's polarity.
package gpio

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// Driver writes and reads logical line states.
type Driver interface {
	// Set drives pin to its active (true) or inactive (false) level.
	Set(pin model.GPIOPin, active bool) error
	// Active reports whether pin is currently at its active level.
	Active(pin model.GPIOPin) (bool, error)
	// Close releases any held lines.
	Close() error
}

const (
	DriverPinctrl  = "pinctrl"
	DriverGPIOCdev = "gpiocdev"
	DriverPeriph   = "periph"
	DriverFake     = "fake"
)

// New builds the driver named by kind. In safe mode writes are logged and dropped.
func New(kind, chip string, safeMode bool) (Driver, error) {
	var (
		d   Driver
		err error
	)

	switch kind {
	case DriverPinctrl, "":
		d = NewPinctrlDriver()
	case DriverGPIOCdev:
		d, err = NewCdevDriver(chip)
	case DriverPeriph:
		d, err = NewPeriphDriver()
	case DriverFake:
		d = NewFakeDriver()
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s driver: %w", kind, err)
	}

	if safeMode {
		log.Warn().Str("driver", kind).Msg("SAFE MODE ENABLED: GPIO writes are disabled")
		return &SafeDriver{Driver: d}, nil
	}
	return d, nil
}

// SafeDriver suppresses writes but still answers reads from the wrapped driver.
type SafeDriver struct {
	Driver
}

func (s *SafeDriver) Set(pin model.GPIOPin, active bool) error {
	log.Debug().
		Int("pin", pin.Number).
		Bool("active", active).
		Msg("Safe mode: skipping GPIO write")
	return nil
}
