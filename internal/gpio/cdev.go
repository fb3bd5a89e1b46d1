//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// CdevDriver drives lines through the Linux GPIO character device.
// Lines are requested as outputs on first use and held until Close.
type CdevDriver struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

func NewCdevDriver(chip string) (*CdevDriver, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("padswitch"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &CdevDriver{
		chip:  c,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

func (d *CdevDriver) Set(pin model.GPIOPin, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := levelValue(pin.Level(active))
	line, ok := d.lines[pin.Number]
	if !ok {
		l, err := d.chip.RequestLine(pin.Number, gpiocdev.AsOutput(value))
		if err != nil {
			return fmt.Errorf("request pin %d: %w", pin.Number, err)
		}
		d.lines[pin.Number] = l
		return nil
	}
	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("set pin %d: %w", pin.Number, err)
	}
	return nil
}

func (d *CdevDriver) Active(pin model.GPIOPin) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	line, ok := d.lines[pin.Number]
	if !ok {
		return false, fmt.Errorf("pin %d has not been requested", pin.Number)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", pin.Number, err)
	}
	return (v == 1) == pin.ActiveHigh, nil
}

// Close releases all lines. Released lines keep their last driven value
// until another consumer requests them.
func (d *CdevDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for n, l := range d.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", n, err))
		}
	}
	d.lines = map[int]*gpiocdev.Line{}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func levelValue(high bool) int {
	if high {
		return 1
	}
	return 0
}
