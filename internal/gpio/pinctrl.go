package gpio

import (
	"github.com/thatsimonsguy/padswitch/internal/model"
	"github.com/thatsimonsguy/padswitch/internal/pinctrl"
)

// PinctrlDriver shells out to the Raspberry Pi `pinctrl` tool.
type PinctrlDriver struct{}

func NewPinctrlDriver() *PinctrlDriver {
	return &PinctrlDriver{}
}

func (d *PinctrlDriver) Set(pin model.GPIOPin, active bool) error {
	return pinctrl.DriveOutput(pin.Number, pin.Level(active))
}

func (d *PinctrlDriver) Active(pin model.GPIOPin) (bool, error) {
	level, err := pinctrl.ReadLevel(pin.Number)
	if err != nil {
		return false, err
	}
	return level == pin.ActiveHigh, nil
}

func (d *PinctrlDriver) Close() error {
	return nil
}
