package models

// ScanFrequencies describes an equidistant frequency sweep
type ScanFrequencies struct {
	Start  float64 `json:"start" doc:"First sweep frequency in Hz"`
	Stop   float64 `json:"stop" doc:"Last sweep frequency in Hz"`
	Points int     `json:"points" minimum:"1" doc:"Number of frequency points"`
}
