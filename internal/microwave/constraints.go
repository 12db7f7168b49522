package microwave

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// ScanMode selects how scan frequencies are traversed
type ScanMode string

const (
	EquidistantSweep ScanMode = "EQUIDISTANT_SWEEP"
	JumpList         ScanMode = "JUMP_LIST"
)

// ParseScanMode maps a mode name onto a ScanMode
func ParseScanMode(s string) (ScanMode, error) {
	switch ScanMode(strings.ToUpper(strings.TrimSpace(s))) {
	case EquidistantSweep:
		return EquidistantSweep, nil
	case JumpList:
		return JumpList, nil
	}
	return "", fmt.Errorf("%w: scan mode %q", ErrUnsupported, s)
}

// TriggerEdge is the active slope of the external trigger input
type TriggerEdge string

const (
	Rising  TriggerEdge = "RISING"
	Falling TriggerEdge = "FALLING"
)

// ParseTriggerEdge maps an edge name onto a TriggerEdge
func ParseTriggerEdge(s string) (TriggerEdge, error) {
	switch TriggerEdge(strings.ToUpper(strings.TrimSpace(s))) {
	case Rising:
		return Rising, nil
	case Falling:
		return Falling, nil
	}
	return "", fmt.Errorf("%w: trigger edge %q", ErrUnsupported, s)
}

// Device limits shared by the whole SMB family
const (
	minPower     = -145.0
	maxPower     = 30.0
	minScanSize  = 2
	maxScanSize  = 10001
	fallbackName = "SMBV100A"
)

// modelFrequencyLimits holds the frequency range of each supported model in Hz
var modelFrequencyLimits = map[string][2]float64{
	"SMB100A":  {9e3, 3.2e9},
	"SMBV100A": {9e3, 6e9},
}

// Constraints are the immutable hardware bounds of an activated device
type Constraints struct {
	powerLimits     [2]float64
	frequencyLimits [2]float64
	scanSizeLimits  [2]int
	scanModes       []ScanMode
}

// NewConstraints builds the bounds for the given model. A non-nil powerClamp
// lowers the upper power bound, but never below the device minimum.
func NewConstraints(model string, powerClamp *float64) *Constraints {
	freq, ok := modelFrequencyLimits[model]
	if !ok {
		log.Warn().Str("model", model).Str("assumed", fallbackName).Msg("Model string unknown, hardware limits may be wrong")
		freq = modelFrequencyLimits[fallbackName]
	}

	upper := maxPower
	if powerClamp != nil {
		upper = math.Max(minPower, *powerClamp)
	}

	return &Constraints{
		powerLimits:     [2]float64{minPower, upper},
		frequencyLimits: freq,
		scanSizeLimits:  [2]int{minScanSize, maxScanSize},
		scanModes:       []ScanMode{EquidistantSweep},
	}
}

// PowerLimits returns the power range in dBm
func (c *Constraints) PowerLimits() (float64, float64) {
	return c.powerLimits[0], c.powerLimits[1]
}

// FrequencyLimits returns the frequency range in Hz
func (c *Constraints) FrequencyLimits() (float64, float64) {
	return c.frequencyLimits[0], c.frequencyLimits[1]
}

// ScanSizeLimits returns the allowed number of sweep points
func (c *Constraints) ScanSizeLimits() (int, int) {
	return c.scanSizeLimits[0], c.scanSizeLimits[1]
}

// ScanModes returns a copy of the supported modes
func (c *Constraints) ScanModes() []ScanMode {
	return append([]ScanMode(nil), c.scanModes...)
}

// MinPower returns the lowest power in dBm
func (c *Constraints) MinPower() float64 { return c.powerLimits[0] }

// PowerInRange reports whether dbm lies within the power range
func (c *Constraints) PowerInRange(dbm float64) bool {
	return dbm >= c.powerLimits[0] && dbm <= c.powerLimits[1]
}

// FrequencyInRange reports whether hz lies within the frequency range
func (c *Constraints) FrequencyInRange(hz float64) bool {
	return hz >= c.frequencyLimits[0] && hz <= c.frequencyLimits[1]
}

// ScanSizeInRange reports whether n sweep points are allowed
func (c *Constraints) ScanSizeInRange(n int) bool {
	return n >= c.scanSizeLimits[0] && n <= c.scanSizeLimits[1]
}

// ModeSupported reports whether the device can run mode
func (c *Constraints) ModeSupported(mode ScanMode) bool {
	for _, m := range c.scanModes {
		if m == mode {
			return true
		}
	}
	return false
}
