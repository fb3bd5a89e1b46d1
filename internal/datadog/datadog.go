package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// Client is the subset of statsd.ClientInterface used here.
type Client interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Incr(name string, tags []string, rate float64) error
}

// Metrics mirrors switch state into DogStatsD gauges and counts events.
// A Metrics with a nil client is a no-op.
type Metrics struct {
	client Client
}

func New(addr, namespace string, tags []string) *Metrics {
	c, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return &Metrics{}
	}

	c.Namespace = namespace
	c.Tags = tags

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Datadog metrics initialized")
	return &Metrics{client: c}
}

func NewWithClient(c Client) *Metrics {
	return &Metrics{client: c}
}

func (m *Metrics) Name() string { return "datadog" }

func (m *Metrics) Handle(ev model.Event) error {
	if m.client == nil {
		return nil
	}

	gate := 0.0
	if ev.Enabled {
		gate = 1
	}
	if err := m.client.Gauge("active_pin", float64(ev.Pin), nil, 1); err != nil {
		return err
	}
	if err := m.client.Gauge("gate_enabled", gate, nil, 1); err != nil {
		return err
	}
	return m.client.Incr("events", []string{"kind:" + string(ev.Kind)}, 1)
}
