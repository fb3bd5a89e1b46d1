//go:build !linux

package gpio

import (
	"errors"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// CdevDriver is not available on non-Linux platforms.
type CdevDriver struct{}

// NewCdevDriver returns an error on non-Linux platforms.
func NewCdevDriver(chip string) (*CdevDriver, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

func (d *CdevDriver) Set(pin model.GPIOPin, active bool) error {
	return errors.New("gpio: not supported")
}

func (d *CdevDriver) Active(pin model.GPIOPin) (bool, error) {
	return false, errors.New("gpio: not supported")
}

func (d *CdevDriver) Close() error {
	return nil
}
