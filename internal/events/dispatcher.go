// Package events moves controller events off the control loop and fans them
// out to observers (journal, metrics, MQTT, notifications).
package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// Observer handles a single event. Errors are logged, never propagated.
type Observer interface {
	Name() string
	Handle(ev model.Event) error
}

// Dispatcher buffers events and delivers them to observers on its own goroutine.
// Publish never blocks; when the buffer is full the event is dropped.
type Dispatcher struct {
	queue     chan model.Event
	observers []Observer
}

func NewDispatcher(size int, observers ...Observer) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		queue:     make(chan model.Event, size),
		observers: observers,
	}
}

func (d *Dispatcher) Publish(ev model.Event) {
	select {
	case d.queue <- ev:
	default:
		log.Warn().Str("kind", string(ev.Kind)).Msg("Event queue full, dropping event")
	}
}

// Run delivers events until ctx is cancelled, then drains whatever is queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev model.Event) {
	for _, o := range d.observers {
		if err := o.Handle(ev); err != nil {
			log.Error().
				Err(err).
				Str("observer", o.Name()).
				Str("kind", string(ev.Kind)).
				Msg("Event observer failed")
		}
	}
}
