package models

import (
	"time"
)

// Output event kinds
const (
	EventCWOn      = "cw_on"
	EventScanStart = "scan_start"
	EventScanReset = "scan_reset"
	EventOff       = "off"
)

// OutputEvent is a journal entry for an output transition of the source
type OutputEvent struct {
	ID        string    `json:"id" doc:"Event unique identifier"`
	Kind      string    `json:"kind" enum:"cw_on,scan_start,scan_reset,off" doc:"Output transition"`
	Model     string    `json:"model" doc:"Instrument model"`
	Frequency *float64  `json:"frequency,omitempty" doc:"CW frequency in Hz"`
	Start     *float64  `json:"start,omitempty" doc:"Sweep start in Hz"`
	Stop      *float64  `json:"stop,omitempty" doc:"Sweep stop in Hz"`
	Points    *int      `json:"points,omitempty" doc:"Sweep points"`
	Power     *float64  `json:"power,omitempty" doc:"Output power in dBm"`
	CreatedAt time.Time `json:"created_at" doc:"When the transition happened"`
}
