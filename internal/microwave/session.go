package microwave

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/smbv/internal/bus"
)

// ModuleState mirrors the output lock of the session
type ModuleState string

const (
	StateDeactivated ModuleState = "deactivated"
	StateIdle        ModuleState = "idle"
	StateLocked      ModuleState = "locked"
)

const defaultCWFrequency = 2870.0e6

// Options configures a Session
type Options struct {
	Address      string
	Timeout      time.Duration
	MaxPower     *float64
	PollInterval time.Duration
	PollTimeout  time.Duration
	Dial         bus.DialFunc
}

// Status is a point-in-time view of the session
type Status struct {
	Model           string
	State           ModuleState
	Scanning        bool
	CWFrequency     float64
	CWPower         float64
	ScanPower       float64
	ScanFrequencies *ScanFrequencies
	ScanMode        ScanMode
}

// Session owns the connection to one SMB(V)100A and serialises every
// operation on it. Setpoints can only change while the output is idle.
type Session struct {
	mu     sync.Mutex
	opts   Options
	poller Poller

	conn        bus.Conn
	model       string
	constraints *Constraints
	locked      bool

	cwPower         float64
	cwFrequency     float64
	scanPower       float64
	scanFrequencies *ScanFrequencies
}

// NewSession creates an inactive session
func NewSession(opts Options) *Session {
	if opts.Dial == nil {
		opts.Dial = bus.Dial
	}
	return &Session{
		opts:        opts,
		poller:      Poller{Interval: opts.PollInterval, Timeout: opts.PollTimeout},
		cwPower:     -20,
		cwFrequency: 2.0e9,
		scanPower:   -20,
	}
}

// Activate connects to the instrument, resets it and derives its constraints
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("%w: session already active", ErrInvalidState)
	}

	conn, err := s.opts.Dial(ctx, s.opts.Address, s.opts.Timeout)
	if err != nil {
		return fmt.Errorf("failed to open instrument connection: %w", err)
	}

	idn, err := conn.Query(ctx, cmdIdentify)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to identify instrument: %w", err)
	}
	model := parseModel(idn)

	s.conn = conn
	for _, cmd := range []string{cmdClearStatus, cmdReset} {
		if err := s.commandWait(ctx, cmd); err != nil {
			s.conn = nil
			conn.Close()
			return fmt.Errorf("failed to reset instrument: %w", err)
		}
	}

	s.model = model
	s.constraints = NewConstraints(model, s.opts.MaxPower)
	s.locked = false
	s.scanFrequencies = nil
	s.scanPower = s.constraints.MinPower()
	s.cwPower = s.constraints.MinPower()
	s.cwFrequency = defaultCWFrequency

	minF, maxF := s.constraints.FrequencyLimits()
	minP, maxP := s.constraints.PowerLimits()
	log.Info().
		Str("address", s.opts.Address).
		Str("model", model).
		Float64("min_frequency", minF).
		Float64("max_frequency", maxF).
		Float64("min_power", minP).
		Float64("max_power", maxP).
		Msg("Microwave source activated")
	return nil
}

// Deactivate closes the instrument connection
func (s *Session) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.constraints = nil
	s.locked = false
	log.Info().Str("model", s.model).Msg("Microwave source deactivated")
	return err
}

// Model returns the model string reported by the instrument
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Constraints returns the device bounds, nil before activation
func (s *Session) Constraints() *Constraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraints
}

// State reports deactivated, idle or locked
func (s *Session) State() ModuleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() ModuleState {
	switch {
	case s.conn == nil:
		return StateDeactivated
	case s.locked:
		return StateLocked
	default:
		return StateIdle
	}
}

// IsScanning reports whether output is on in sweep mode
func (s *Session) IsScanning(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isScanning(ctx)
}

func (s *Session) isScanning(ctx context.Context) (bool, error) {
	if err := s.requireActive(); err != nil {
		return false, err
	}
	if !s.locked {
		return false, nil
	}
	cw, err := s.inCWMode(ctx)
	if err != nil {
		return false, err
	}
	return !cw, nil
}

// Status collects the cached setpoints together with the live output mode
func (s *Session) Status(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Model:       s.model,
		State:       s.state(),
		CWFrequency: s.cwFrequency,
		CWPower:     s.cwPower,
		ScanPower:   s.scanPower,
		ScanMode:    EquidistantSweep,
	}
	if s.scanFrequencies != nil {
		f := *s.scanFrequencies
		st.ScanFrequencies = &f
	}
	if st.State == StateDeactivated {
		return st, nil
	}
	scanning, err := s.isScanning(ctx)
	if err != nil {
		return st, err
	}
	st.Scanning = scanning
	return st, nil
}

// CWPower returns the cached CW power in dBm
func (s *Session) CWPower() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwPower
}

// SetCWPower programs the CW power in dBm and refreshes both CW setpoints
// from the device.
func (s *Session) SetCWPower(ctx context.Context, dbm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set cw power"); err != nil {
		return err
	}
	if !s.constraints.PowerInRange(dbm) {
		minP, maxP := s.constraints.PowerLimits()
		return fmt.Errorf("%w: cw power %g dBm outside [%g, %g]", ErrOutOfBounds, dbm, minP, maxP)
	}
	return s.writeCW(ctx, s.cwFrequency, dbm)
}

// CWFrequency returns the cached CW frequency in Hz
func (s *Session) CWFrequency() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwFrequency
}

// SetCWFrequency programs the CW frequency in Hz and refreshes both CW
// setpoints from the device.
func (s *Session) SetCWFrequency(ctx context.Context, hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set cw frequency"); err != nil {
		return err
	}
	if !s.constraints.FrequencyInRange(hz) {
		minF, maxF := s.constraints.FrequencyLimits()
		return fmt.Errorf("%w: cw frequency %.9e Hz outside [%g, %g]", ErrOutOfBounds, hz, minF, maxF)
	}
	return s.writeCW(ctx, hz, s.cwPower)
}

// ScanPower returns the cached sweep power in dBm
func (s *Session) ScanPower() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanPower
}

// SetScanPower stores the sweep power and reprograms the sweep if one is set
func (s *Session) SetScanPower(ctx context.Context, dbm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set scan power"); err != nil {
		return err
	}
	if !s.constraints.PowerInRange(dbm) {
		minP, maxP := s.constraints.PowerLimits()
		return fmt.Errorf("%w: scan power %g dBm outside [%g, %g]", ErrOutOfBounds, dbm, minP, maxP)
	}

	s.scanPower = dbm
	if s.scanFrequencies != nil {
		return s.writeSweep(ctx)
	}
	return nil
}

// ScanFrequencies returns the configured sweep, nil if none is set
func (s *Session) ScanFrequencies() *ScanFrequencies {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanFrequencies == nil {
		return nil
	}
	f := *s.scanFrequencies
	return &f
}

// SetScanFrequencies stores and programs an equidistant sweep
func (s *Session) SetScanFrequencies(ctx context.Context, f ScanFrequencies) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set scan frequencies"); err != nil {
		return err
	}
	if !s.constraints.FrequencyInRange(f.Start) || !s.constraints.FrequencyInRange(f.Stop) {
		minF, maxF := s.constraints.FrequencyLimits()
		return fmt.Errorf("%w: scan frequencies [%g, %g] outside [%g, %g]", ErrOutOfBounds, f.Start, f.Stop, minF, maxF)
	}
	if !s.constraints.ScanSizeInRange(f.Points) {
		minN, maxN := s.constraints.ScanSizeLimits()
		return fmt.Errorf("%w: %d scan points outside [%d, %d]", ErrOutOfBounds, f.Points, minN, maxN)
	}

	s.scanFrequencies = &f
	return s.writeSweep(ctx)
}

// ScanMode always reports the equidistant sweep, the only mode of this device
func (s *Session) ScanMode() ScanMode {
	return EquidistantSweep
}

// SetScanMode selects the scan mode and drops the stored scan frequencies,
// so a new sweep has to be configured before the next scan.
func (s *Session) SetScanMode(mode ScanMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set scan mode"); err != nil {
		return err
	}
	if !s.constraints.ModeSupported(mode) {
		return fmt.Errorf("%w: scan mode %q", ErrUnsupported, mode)
	}
	s.scanFrequencies = nil
	return nil
}

// TriggerEdge reads the trigger slope from the device
func (s *Session) TriggerEdge(ctx context.Context) (TriggerEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return "", err
	}
	edge, err := s.conn.Query(ctx, cmdSlopeQuery)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToUpper(edge), "NEG") {
		return Falling, nil
	}
	return Rising, nil
}

// SetTriggerEdge programs the trigger slope while the output is idle
func (s *Session) SetTriggerEdge(ctx context.Context, edge TriggerEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdle("set trigger edge"); err != nil {
		return err
	}
	slope := "POS"
	switch edge {
	case Falling:
		slope = "NEG"
	case Rising:
	default:
		return fmt.Errorf("%w: trigger edge %q", ErrUnsupported, edge)
	}
	return s.commandWait(ctx, fmt.Sprintf(cmdSlopeFmt, slope))
}

// Off switches any output off and returns once the device reports it off.
// changed reports whether the output was on. When the session believes it is
// idle the output register is still checked, so an output left on by an
// interrupted start is caught.
func (s *Session) Off(ctx context.Context) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}
	if !s.locked {
		on, err := s.outputOn(ctx)
		if err != nil {
			return false, err
		}
		if !on {
			return false, nil
		}
		log.Warn().Msg("Output on while session idle, switching it off")
	}

	if err := s.writeAll(ctx, cmdOutputOff, cmdWait); err != nil {
		return false, err
	}
	if err := s.waitOutput(ctx, false); err != nil {
		return false, err
	}
	s.locked = false
	log.Info().Msg("Microwave output off")
	return true, nil
}

// CWOn starts CW output and returns once the device reports it on. changed
// reports whether the output lock was taken. Once the on command is written
// the lock is held even if confirmation fails, since the device may be
// transmitting.
func (s *Session) CWOn(ctx context.Context) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}

	cw, err := s.inCWMode(ctx)
	if err != nil {
		return false, err
	}
	if s.locked {
		if cw {
			return false, nil
		}
		return false, fmt.Errorf("%w: unable to start CW output, frequency scan is running", ErrInvalidState)
	}

	if !cw {
		if err := s.commandWait(ctx, cmdFreqModeCW); err != nil {
			return false, err
		}
	}
	if err := s.commandWait(ctx, fmt.Sprintf(cmdFreqFmt, s.cwFrequency)); err != nil {
		return false, err
	}
	if err := s.commandWait(ctx, fmt.Sprintf(cmdPowerFmt, s.cwPower)); err != nil {
		return false, err
	}

	if err := s.switchOn(ctx, cmdOutputOn, cmdWait); err != nil {
		return true, err
	}
	log.Info().Float64("frequency", s.cwFrequency).Float64("power", s.cwPower).Msg("CW output on")
	return true, nil
}

// StartScan arms the configured sweep and returns once output is on. The
// lock follows the same rule as CWOn.
func (s *Session) StartScan(ctx context.Context) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}

	cw, err := s.inCWMode(ctx)
	if err != nil {
		return false, err
	}
	if s.locked {
		if !cw {
			return false, nil
		}
		return false, fmt.Errorf("%w: unable to start frequency scan, CW output is active", ErrInvalidState)
	}
	if s.scanFrequencies == nil {
		return false, fmt.Errorf("%w: no scan frequencies set", ErrInvalidState)
	}

	if cw {
		if err := s.commandWait(ctx, cmdFreqModeSweep); err != nil {
			return false, err
		}
	}

	if err := s.switchOn(ctx, cmdOutputOn); err != nil {
		return true, err
	}
	log.Info().
		Float64("start", s.scanFrequencies.Start).
		Float64("stop", s.scanFrequencies.Stop).
		Int("points", s.scanFrequencies.Points).
		Float64("power", s.scanPower).
		Msg("Frequency scan started")
	return true, nil
}

// ResetScan returns a running sweep to its start frequency without
// switching the output off. changed reports whether a sweep was reset.
func (s *Session) ResetScan(ctx context.Context) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return false, err
	}
	if !s.locked {
		return false, nil
	}
	cw, err := s.inCWMode(ctx)
	if err != nil {
		return false, err
	}
	if cw {
		return false, fmt.Errorf("%w: cannot reset frequency scan, CW output is active", ErrInvalidState)
	}
	if err := s.commandWait(ctx, cmdAbortSweep); err != nil {
		return false, err
	}
	return true, nil
}

// switchOn writes the on sequence, takes the lock and waits for the output
// register to confirm
func (s *Session) switchOn(ctx context.Context, cmds ...string) error {
	if err := s.writeAll(ctx, cmds...); err != nil {
		return err
	}
	s.locked = true
	if err := s.waitOutput(ctx, true); err != nil {
		log.Warn().Err(err).Msg("Output on not confirmed, keeping the session locked")
		return err
	}
	return nil
}

func (s *Session) requireActive() error {
	if s.conn == nil {
		return ErrNotActive
	}
	return nil
}

func (s *Session) requireIdle(op string) error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if s.locked {
		return fmt.Errorf("%w: unable to %s, microwave output is active", ErrInvalidState, op)
	}
	return nil
}

// commandWait writes cmd and blocks until the operation complete register
// reads 1.
func (s *Session) commandWait(ctx context.Context, cmd string) error {
	if err := s.writeAll(ctx, cmd, cmdWait); err != nil {
		return err
	}
	return s.poller.Until(ctx, func(ctx context.Context) (bool, error) {
		v, err := s.queryInt(ctx, cmdOperationQuery)
		if err != nil {
			return false, err
		}
		return v == 1, nil
	})
}

func (s *Session) writeAll(ctx context.Context, cmds ...string) error {
	for _, cmd := range cmds {
		if err := s.conn.Write(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// waitOutput polls the output state register until it matches on
func (s *Session) waitOutput(ctx context.Context, on bool) error {
	return s.poller.Until(ctx, func(ctx context.Context) (bool, error) {
		current, err := s.outputOn(ctx)
		if err != nil {
			return false, err
		}
		return current == on, nil
	})
}

func (s *Session) outputOn(ctx context.Context) (bool, error) {
	v, err := s.queryInt(ctx, cmdOutputQuery)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (s *Session) inCWMode(ctx context.Context) (bool, error) {
	mode, err := s.conn.Query(ctx, cmdFreqModeQuery)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(mode), "cw"), nil
}

func (s *Session) writeCW(ctx context.Context, hz, dbm float64) error {
	cw, err := s.inCWMode(ctx)
	if err != nil {
		return err
	}
	if !cw {
		if err := s.commandWait(ctx, cmdFreqModeCW); err != nil {
			return err
		}
	}
	if err := s.commandWait(ctx, fmt.Sprintf(cmdFreqFmt, hz)); err != nil {
		return err
	}
	if err := s.commandWait(ctx, fmt.Sprintf(cmdPowerFmt, dbm)); err != nil {
		return err
	}

	// the device rounds both values, keep what it actually uses
	power, err := s.queryFloat(ctx, cmdPowerQuery)
	if err != nil {
		return err
	}
	freq, err := s.queryFloat(ctx, cmdFreqQuery)
	if err != nil {
		return err
	}
	s.cwPower = power
	s.cwFrequency = freq
	return nil
}

func (s *Session) writeSweep(ctx context.Context) error {
	plan, err := PlanSweep(*s.scanFrequencies, s.scanPower)
	if err != nil {
		return err
	}

	cw, err := s.inCWMode(ctx)
	if err != nil {
		return err
	}
	if cw {
		if err := s.commandWait(ctx, cmdFreqModeSweep); err != nil {
			return err
		}
	}

	for _, cmd := range plan.Commands() {
		if err := s.commandWait(ctx, cmd); err != nil {
			return err
		}
	}
	log.Debug().
		Float64("start", plan.Start).
		Float64("stop", plan.Stop).
		Float64("step", plan.Step).
		Float64("power", plan.Power).
		Msg("Sweep programmed")
	return nil
}

func (s *Session) queryFloat(ctx context.Context, cmd string) (float64, error) {
	reply, err := s.conn.Query(ctx, cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected reply %q to %s: %w", reply, cmd, err)
	}
	return v, nil
}

func (s *Session) queryInt(ctx context.Context, cmd string) (int, error) {
	v, err := s.queryFloat(ctx, cmd)
	return int(v), err
}

// parseModel extracts the model field of an *IDN? reply
func parseModel(idn string) string {
	fields := strings.Split(idn, ",")
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}
