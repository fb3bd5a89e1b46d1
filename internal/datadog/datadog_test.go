package datadog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

type sample struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	samples []sample
	err     error
}

func (f *fakeClient) Gauge(name string, value float64, tags []string, _ float64) error {
	f.samples = append(f.samples, sample{"gauge", name, value, tags})
	return f.err
}

func (f *fakeClient) Incr(name string, tags []string, _ float64) error {
	f.samples = append(f.samples, sample{"count", name, 1, tags})
	return f.err
}

func TestHandleEmitsGaugesAndCount(t *testing.T) {
	c := &fakeClient{}
	m := NewWithClient(c)

	err := m.Handle(model.Event{Kind: model.EventActivate, Pin: 3, Enabled: true})
	assert.NoError(t, err)

	assert.Equal(t, []sample{
		{"gauge", "active_pin", 3, nil},
		{"gauge", "gate_enabled", 1, nil},
		{"count", "events", 1, []string{"kind:activate"}},
	}, c.samples)
}

func TestHandleNoPin(t *testing.T) {
	c := &fakeClient{}
	m := NewWithClient(c)

	assert.NoError(t, m.Handle(model.Event{Kind: model.EventAutoOff, Pin: model.NoPin}))
	assert.Equal(t, float64(-1), c.samples[0].value)
	assert.Equal(t, float64(0), c.samples[1].value)
}

func TestHandleStopsOnError(t *testing.T) {
	c := &fakeClient{err: errors.New("socket closed")}
	m := NewWithClient(c)

	assert.Error(t, m.Handle(model.Event{Kind: model.EventPing}))
	assert.Len(t, c.samples, 1)
}

func TestNilClientIsNoop(t *testing.T) {
	m := &Metrics{}
	assert.NoError(t, m.Handle(model.Event{Kind: model.EventPing}))
	assert.Equal(t, "datadog", m.Name())
}
