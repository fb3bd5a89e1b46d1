package model

import (
	"strconv"
	"time"
)

// NoPin is the ActivePin value reported when no output is selected.
const NoPin = -1

type GPIOPin struct {
	Number     int  `json:"pin"`
	ActiveHigh bool `json:"active_high"`
}

// Level returns the physical level (true = high) that puts the line in the given logical state.
func (p GPIOPin) Level(active bool) bool {
	return p.ActiveHigh == active
}

type Status struct {
	ActivePin   int
	GateEnabled bool
}

// StatusResponse is the wire form of Status. Both fields are strings.
type StatusResponse struct {
	Pin     string `json:"pin"`
	Enabled string `json:"enabled"`
}

func (s Status) Response() StatusResponse {
	return StatusResponse{
		Pin:     strconv.Itoa(s.ActivePin),
		Enabled: strconv.FormatBool(s.GateEnabled),
	}
}

type EventKind string

const (
	EventActivate   EventKind = "activate"
	EventDeactivate EventKind = "deactivate"
	EventDisable    EventKind = "disable"
	EventEnable     EventKind = "enable"
	EventPing       EventKind = "ping"
	EventAutoOff    EventKind = "auto_off"
	EventStartup    EventKind = "startup"
	EventShutdown   EventKind = "shutdown"
)

type Event struct {
	Time    time.Time
	Kind    EventKind
	Pin     int
	Enabled bool
	Timeout time.Duration // auto-off duration in force after the event, zero when not armed
	Source  string        // "api", "timer", "system"
}
