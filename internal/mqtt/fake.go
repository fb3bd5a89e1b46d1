package mqtt

import (
	"github.com/thatsimonsguy/padswitch/internal/model"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	Events   []model.Event
	Payloads [][]byte

	// PublishError, if set, is returned by Publish.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(ev model.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(ev)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, ev)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
