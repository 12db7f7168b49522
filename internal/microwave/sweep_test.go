package microwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSweep(t *testing.T) {
	tests := []struct {
		name      string
		f         ScanFrequencies
		wantStart float64
		wantStep  float64
	}{
		{name: "five points", f: ScanFrequencies{Start: 1e9, Stop: 2e9, Points: 5}, wantStart: 0.75e9, wantStep: 0.25e9},
		{name: "two points", f: ScanFrequencies{Start: 2.8e9, Stop: 2.9e9, Points: 2}, wantStart: 2.7e9, wantStep: 0.1e9},
		{name: "descending", f: ScanFrequencies{Start: 2e9, Stop: 1e9, Points: 3}, wantStart: 2.5e9, wantStep: -0.5e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSweep(tt.f, -20)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantStart, plan.Start, 1e-3)
			assert.InDelta(t, tt.wantStep, plan.Step, 1e-3)
			assert.Equal(t, tt.f.Stop, plan.Stop)
			assert.Equal(t, -20.0, plan.Power)
		})
	}
}

func TestPlanSweep_TooFewPoints(t *testing.T) {
	_, err := PlanSweep(ScanFrequencies{Start: 1e9, Stop: 2e9, Points: 1}, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSweepPlan_Commands(t *testing.T) {
	plan, err := PlanSweep(ScanFrequencies{Start: 1e9, Stop: 2e9, Points: 5}, -7.5)
	require.NoError(t, err)

	assert.Equal(t, []string{
		":SWE:MODE STEP",
		":SWE:SPAC LIN",
		":FREQ:START 750000000.000000",
		":FREQ:STOP 2000000000.000000",
		":SWE:STEP:LIN 250000000.000000",
		":POW -7.500000",
		"TRIG:FSW:SOUR EXT",
	}, plan.Commands())
}
