// Package bustest provides an in-memory SMB(V)100A for tests.
package bustest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RMahshie/smbv/internal/bus"
)

// Instrument emulates the parts of an SMBV100A the session talks to. It
// implements bus.Conn. OPCDelay and OutputDelay make the status registers lag
// behind by that many queries after each write.
type Instrument struct {
	mu sync.Mutex

	IDN         string
	FreqMode    string
	Frequency   float64
	Power       float64
	Output      bool
	Slope       string
	SweepStart  float64
	SweepStop   float64
	SweepStep   float64
	OPCDelay    int
	OutputDelay int
	FailOn      map[string]error
	Closed      bool

	opcPending    int
	outputPending int
	writes        []string
}

// NewInstrument returns an idle instrument reporting the given model
func NewInstrument(model string) *Instrument {
	return &Instrument{
		IDN:      fmt.Sprintf("Rohde&Schwarz,%s,1407.6004k02/262017,3.1.19.15-3.20.390.24", model),
		FreqMode: "CW",
		Slope:    "POS",
		FailOn:   map[string]error{},
	}
}

// Dial satisfies bus.DialFunc and hands out the instrument itself
func (f *Instrument) Dial(ctx context.Context, address string, timeout time.Duration) (bus.Conn, error) {
	return f, nil
}

// Write applies a command to the emulated registers
func (f *Instrument) Write(ctx context.Context, cmd string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FailOn[cmd]; err != nil {
		return err
	}
	f.writes = append(f.writes, cmd)

	head, arg, _ := strings.Cut(cmd, " ")
	num, _ := strconv.ParseFloat(arg, 64)
	switch head {
	case "*WAI", "*CLS", ":SWE:MODE", ":SWE:SPAC", "TRIG:FSW:SOUR", ":ABOR:SWE":
	case "*RST":
		f.FreqMode = "CW"
		f.Output = false
	case ":FREQ:MODE":
		if arg == "CW" {
			f.FreqMode = "CW"
		} else {
			f.FreqMode = "SWE"
		}
	case ":FREQ":
		f.Frequency = math.Round(num*100) / 100
	case ":POW":
		f.Power = math.Round(num*100) / 100
	case ":FREQ:START":
		f.SweepStart = num
	case ":FREQ:STOP":
		f.SweepStop = num
	case ":SWE:STEP:LIN":
		f.SweepStep = num
	case ":TRIG1:SLOP":
		f.Slope = arg
	case ":OUTP:STAT", "OUTP:STAT":
		f.Output = arg == "ON"
		f.outputPending = f.OutputDelay
	default:
		return fmt.Errorf("bustest: unknown command %q", cmd)
	}
	f.opcPending = f.OPCDelay
	return nil
}

// Query answers from the emulated registers
func (f *Instrument) Query(ctx context.Context, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.FailOn[cmd]; err != nil {
		return "", err
	}

	switch cmd {
	case "*IDN?":
		return f.IDN, nil
	case "*OPC?":
		if f.opcPending > 0 {
			f.opcPending--
			return "0", nil
		}
		return "1", nil
	case ":FREQ:MODE?":
		return f.FreqMode + "\n", nil
	case ":FREQ?":
		return strconv.FormatFloat(f.Frequency, 'f', -1, 64), nil
	case ":POW?":
		return strconv.FormatFloat(f.Power, 'f', -1, 64), nil
	case ":TRIG1:SLOP?":
		return f.Slope, nil
	case ":OUTP:STAT?", "OUTP:STAT?":
		on := f.Output
		if f.outputPending > 0 {
			f.outputPending--
			on = !on
		}
		if on {
			return "1", nil
		}
		return "0", nil
	}
	return "", fmt.Errorf("bustest: unknown query %q", cmd)
}

// Close marks the instrument closed
func (f *Instrument) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Written returns every command written so far
func (f *Instrument) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// ResetWrites clears the write log
func (f *Instrument) ResetWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
}

// WithoutWaits strips the *WAI markers from a write log
func WithoutWaits(cmds []string) []string {
	var out []string
	for _, c := range cmds {
		if c != "*WAI" {
			out = append(out, c)
		}
	}
	return out
}
