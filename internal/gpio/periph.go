package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// PeriphDriver uses periph.io. Pins are addressed by BCM number ("GPIO17").
type PeriphDriver struct {
	lookup func(name string) gpio.PinIO
}

func NewPeriphDriver() (*PeriphDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &PeriphDriver{lookup: gpioreg.ByName}, nil
}

func (d *PeriphDriver) pin(number int) (gpio.PinIO, error) {
	p := d.lookup(fmt.Sprintf("GPIO%d", number))
	if p == nil {
		return nil, fmt.Errorf("pin GPIO%d not found", number)
	}
	return p, nil
}

func (d *PeriphDriver) Set(pin model.GPIOPin, active bool) error {
	p, err := d.pin(pin.Number)
	if err != nil {
		return err
	}
	level := gpio.Low
	if pin.Level(active) {
		level = gpio.High
	}
	if err := p.Out(level); err != nil {
		return fmt.Errorf("drive GPIO%d: %w", pin.Number, err)
	}
	return nil
}

func (d *PeriphDriver) Active(pin model.GPIOPin) (bool, error) {
	p, err := d.pin(pin.Number)
	if err != nil {
		return false, err
	}
	return (p.Read() == gpio.High) == pin.ActiveHigh, nil
}

func (d *PeriphDriver) Close() error {
	return nil
}
