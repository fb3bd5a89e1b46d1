package gpio

import (
	"sync"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// Write is a single recorded call to FakeDriver.Set.
type Write struct {
	Pin    int
	Active bool
	High   bool
}

// FakeDriver is an in-memory driver for tests and desktop runs.
type FakeDriver struct {
	mu     sync.Mutex
	levels map[int]bool // physical level, true = high

	// Writes records every Set call in order.
	Writes []Write

	// SetError, if set, is returned by Set for any pin in FailPins (or every pin when FailPins is empty).
	SetError error
	FailPins map[int]bool

	Closed bool
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{levels: make(map[int]bool)}
}

func (f *FakeDriver) Set(pin model.GPIOPin, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil && (len(f.FailPins) == 0 || f.FailPins[pin.Number]) {
		return f.SetError
	}
	high := pin.Level(active)
	f.levels[pin.Number] = high
	f.Writes = append(f.Writes, Write{Pin: pin.Number, Active: active, High: high})
	return nil
}

func (f *FakeDriver) Active(pin model.GPIOPin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin.Number] == pin.ActiveHigh, nil
}

// High reports the physical level last driven on a pin number.
func (f *FakeDriver) High(number int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[number]
}

// Driven reports whether the pin has been written at least once.
func (f *FakeDriver) Driven(number int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.levels[number]
	return ok
}

// ResetWrites clears the recorded writes but keeps line levels.
func (f *FakeDriver) ResetWrites() {
	f.mu.Lock()
	f.Writes = nil
	f.mu.Unlock()
}

func (f *FakeDriver) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
