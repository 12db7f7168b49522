package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// StatusResponseBody is the body of the status response
type StatusResponseBody struct {
	Model           string           `json:"model" doc:"Instrument model reported by *IDN?"`
	State           string           `json:"state" enum:"deactivated,idle,locked" doc:"Output lock state"`
	Scanning        bool             `json:"scanning" doc:"Whether a frequency scan is running"`
	CWFrequency     float64          `json:"cw_frequency" doc:"CW frequency in Hz"`
	CWPower         float64          `json:"cw_power" doc:"CW power in dBm"`
	ScanPower       float64          `json:"scan_power" doc:"Scan power in dBm"`
	ScanFrequencies *ScanFrequencies `json:"scan_frequencies,omitempty" doc:"Configured sweep, absent if none"`
	ScanMode        string           `json:"scan_mode" doc:"Scan mode"`
}

// StatusResponse represents the current state of the microwave source
type StatusResponse struct {
	Body StatusResponseBody
}

// ConstraintsResponseBody is the body of the constraints response
type ConstraintsResponseBody struct {
	MinPower     float64  `json:"min_power" doc:"Lowest power in dBm"`
	MaxPower     float64  `json:"max_power" doc:"Highest power in dBm"`
	MinFrequency float64  `json:"min_frequency" doc:"Lowest frequency in Hz"`
	MaxFrequency float64  `json:"max_frequency" doc:"Highest frequency in Hz"`
	MinScanSize  int      `json:"min_scan_size" doc:"Fewest sweep points"`
	MaxScanSize  int      `json:"max_scan_size" doc:"Most sweep points"`
	ScanModes    []string `json:"scan_modes" doc:"Supported scan modes"`
}

// ConstraintsResponse represents the hardware limits of the source
type ConstraintsResponse struct {
	Body ConstraintsResponseBody
}

// CWSettingsBody holds the CW setpoint
type CWSettingsBody struct {
	Frequency float64 `json:"frequency" doc:"CW frequency in Hz"`
	Power     float64 `json:"power" doc:"CW power in dBm"`
}

// CWResponse represents the CW setpoint
type CWResponse struct {
	Body CWSettingsBody
}

// SetCWRequest updates the CW setpoint. Frequency is applied before power.
type SetCWRequest struct {
	Body struct {
		Frequency *float64 `json:"frequency,omitempty" doc:"CW frequency in Hz"`
		Power     *float64 `json:"power,omitempty" doc:"CW power in dBm"`
	}
}

// ScanSettingsBody holds the scan setpoint
type ScanSettingsBody struct {
	Power       float64          `json:"power" doc:"Scan power in dBm"`
	Frequencies *ScanFrequencies `json:"frequencies,omitempty" doc:"Configured sweep, absent if none"`
}

// ScanResponse represents the scan setpoint
type ScanResponse struct {
	Body ScanSettingsBody
}

// SetScanRequest updates the scan setpoint. Power is applied before frequencies.
type SetScanRequest struct {
	Body struct {
		Power       *float64         `json:"power,omitempty" doc:"Scan power in dBm"`
		Frequencies *ScanFrequencies `json:"frequencies,omitempty" doc:"Equidistant sweep"`
	}
}

// ScanModeBody holds a scan mode
type ScanModeBody struct {
	Mode string `json:"mode" enum:"EQUIDISTANT_SWEEP,JUMP_LIST" doc:"Scan mode"`
}

// ScanModeResponse represents the current scan mode
type ScanModeResponse struct {
	Body ScanModeBody
}

// SetScanModeRequest selects a scan mode and clears the configured sweep
type SetScanModeRequest struct {
	Body ScanModeBody
}

// TriggerEdgeBody holds the trigger slope
type TriggerEdgeBody struct {
	Edge string `json:"edge" enum:"RISING,FALLING" doc:"Active trigger slope"`
}

// TriggerEdgeResponse represents the trigger slope
type TriggerEdgeResponse struct {
	Body TriggerEdgeBody
}

// SetTriggerEdgeRequest sets the trigger slope
type SetTriggerEdgeRequest struct {
	Body TriggerEdgeBody
}

// OutputResponse is returned by output transitions
type OutputResponse struct {
	Body struct {
		State    string `json:"state" doc:"Output lock state after the transition"`
		Scanning bool   `json:"scanning" doc:"Whether a frequency scan is running"`
	}
}

// ListEventsRequest queries the output journal
type ListEventsRequest struct {
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Maximum number of events"`
}

// ListEventsResponse returns recent output transitions, newest first
type ListEventsResponse struct {
	Body struct {
		Events []*OutputEvent `json:"events" doc:"Output transitions"`
	}
}
