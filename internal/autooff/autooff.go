// Package autooff implements the single-shot safety countdown that turns the
// gate off after a period of inactivity. It is polled; it never runs callbacks.
package autooff

import (
	"fmt"
	"math"
	"time"
)

// DefaultDuration is the reference auto-off period.
const DefaultDuration = 10 * time.Minute

// MinDuration is the shortest accepted override.
const MinDuration = time.Millisecond

// MaxMillis is the largest millisecond count a time.Duration can hold.
const MaxMillis = math.MaxInt64 / int64(time.Millisecond)

type InvalidTimeoutError struct {
	Timeout time.Duration
}

func (e *InvalidTimeoutError) Error() string {
	return fmt.Sprintf("invalid auto-off timeout %v: must be at least %v", e.Timeout, MinDuration)
}

// Validate checks an override duration.
func Validate(d time.Duration) error {
	if d < MinDuration {
		return &InvalidTimeoutError{Timeout: d}
	}
	return nil
}

// Timer is either unarmed or armed with a deadline. Re-arming replaces the
// deadline; it never stacks.
type Timer struct {
	duration time.Duration
	deadline time.Time
	armed    bool
}

func New(d time.Duration) *Timer {
	if d < MinDuration {
		d = DefaultDuration
	}
	return &Timer{duration: d}
}

// SetDuration changes the period used by the next Arm.
func (t *Timer) SetDuration(d time.Duration) error {
	if err := Validate(d); err != nil {
		return err
	}
	t.duration = d
	return nil
}

func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Arm sets the deadline to now plus the configured duration.
func (t *Timer) Arm(now time.Time) {
	t.deadline = now.Add(t.duration)
	t.armed = true
}

// Cancel disarms without firing.
func (t *Timer) Cancel() {
	t.armed = false
	t.deadline = time.Time{}
}

func (t *Timer) Armed() bool {
	return t.armed
}

// Deadline returns the armed deadline and whether the timer is armed.
func (t *Timer) Deadline() (time.Time, bool) {
	return t.deadline, t.armed
}

// Remaining returns the time left before firing, or zero when unarmed or due.
func (t *Timer) Remaining(now time.Time) time.Duration {
	if !t.armed || !now.Before(t.deadline) {
		return 0
	}
	return t.deadline.Sub(now)
}

// Update reports true exactly once per arming, on the first call at or after
// the deadline. The timer is unarmed afterwards.
func (t *Timer) Update(now time.Time) bool {
	if !t.armed || now.Before(t.deadline) {
		return false
	}
	t.Cancel()
	return true
}
