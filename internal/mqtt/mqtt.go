// Package mqtt publishes switch state changes to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/thatsimonsguy/padswitch/internal/model"
)

// DefaultTopic carries a retained snapshot of the switch after every event.
const DefaultTopic = "padswitch/status"

// Publisher publishes switch events to MQTT.
type Publisher interface {
	// Publish sends the event as a retained status message.
	Publish(ev model.Event) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON body published for every event.
type Payload struct {
	Switch SwitchPayload `json:"switch"`
}

type SwitchPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Pin       string `json:"pin"`
	Enabled   string `json:"enabled"`
	Source    string `json:"source,omitempty"`
}

// FormatPayload renders pin and enabled as strings, matching the HTTP status body.
func FormatPayload(ev model.Event) ([]byte, error) {
	st := model.Status{ActivePin: ev.Pin, GateEnabled: ev.Enabled}.Response()
	payload := Payload{
		Switch: SwitchPayload{
			Timestamp: ev.Time.UTC().Format(time.RFC3339),
			Event:     string(ev.Kind),
			Pin:       st.Pin,
			Enabled:   st.Enabled,
			Source:    ev.Source,
		},
	}
	return json.Marshal(payload)
}

// Observer adapts a Publisher to the event dispatcher.
type Observer struct {
	Publisher Publisher
}

func (o Observer) Name() string { return "mqtt" }

func (o Observer) Handle(ev model.Event) error {
	return o.Publisher.Publish(ev)
}
