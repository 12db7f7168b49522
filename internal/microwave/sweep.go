package microwave

import "fmt"

// ScanFrequencies describes an equidistant sweep from Start to Stop in Points steps
type ScanFrequencies struct {
	Start  float64
	Stop   float64
	Points int
}

// SweepPlan is what actually gets programmed into the instrument
type SweepPlan struct {
	Start float64
	Stop  float64
	Step  float64
	Power float64
}

// PlanSweep computes the device sweep settings. The instrument emits its first
// point one step before the programmed start, so the start is shifted back by
// one step to land the first triggered point on the requested frequency.
func PlanSweep(f ScanFrequencies, power float64) (SweepPlan, error) {
	if f.Points < 2 {
		return SweepPlan{}, fmt.Errorf("%w: sweep needs at least 2 points, got %d", ErrOutOfBounds, f.Points)
	}
	step := (f.Stop - f.Start) / float64(f.Points-1)
	return SweepPlan{
		Start: f.Start - step,
		Stop:  f.Stop,
		Step:  step,
		Power: power,
	}, nil
}

// Commands returns the SCPI sequence for the plan in issue order
func (p SweepPlan) Commands() []string {
	return []string{
		cmdSweepModeStep,
		cmdSweepSpacingLinear,
		fmt.Sprintf(cmdSweepStartFmt, p.Start),
		fmt.Sprintf(cmdSweepStopFmt, p.Stop),
		fmt.Sprintf(cmdSweepStepFmt, p.Step),
		fmt.Sprintf(cmdPowerFmt, p.Power),
		cmdTriggerSourceExternal,
	}
}
