package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/smbv/internal/microwave"
	"github.com/RMahshie/smbv/internal/repository"
	"github.com/RMahshie/smbv/pkg/models"
)

// MicrowaveSource is the instrument contract the handlers drive
type MicrowaveSource interface {
	Status(ctx context.Context) (microwave.Status, error)
	State() microwave.ModuleState
	Model() string
	Constraints() *microwave.Constraints
	IsScanning(ctx context.Context) (bool, error)

	CWFrequency() float64
	CWPower() float64
	SetCWFrequency(ctx context.Context, hz float64) error
	SetCWPower(ctx context.Context, dbm float64) error

	ScanPower() float64
	SetScanPower(ctx context.Context, dbm float64) error
	ScanFrequencies() *microwave.ScanFrequencies
	SetScanFrequencies(ctx context.Context, f microwave.ScanFrequencies) error
	ScanMode() microwave.ScanMode
	SetScanMode(mode microwave.ScanMode) error

	TriggerEdge(ctx context.Context) (microwave.TriggerEdge, error)
	SetTriggerEdge(ctx context.Context, edge microwave.TriggerEdge) error

	Off(ctx context.Context) (bool, error)
	CWOn(ctx context.Context) (bool, error)
	StartScan(ctx context.Context) (bool, error)
	ResetScan(ctx context.Context) (bool, error)
}

const defaultEventLimit = 50

// MicrowaveHandler handles microwave source HTTP requests
type MicrowaveHandler struct {
	source MicrowaveSource
	events repository.EventRepository
}

// NewMicrowaveHandler creates a new microwave handler. events may be nil when
// no journal is configured.
func NewMicrowaveHandler(source MicrowaveSource, events repository.EventRepository) *MicrowaveHandler {
	return &MicrowaveHandler{
		source: source,
		events: events,
	}
}

// GetStatus returns the cached setpoints and live output mode
func (h *MicrowaveHandler) GetStatus(ctx context.Context, _ *struct{}) (*models.StatusResponse, error) {
	st, err := h.source.Status(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to read instrument status", err)
	}

	return &models.StatusResponse{
		Body: models.StatusResponseBody{
			Model:           st.Model,
			State:           string(st.State),
			Scanning:        st.Scanning,
			CWFrequency:     st.CWFrequency,
			CWPower:         st.CWPower,
			ScanPower:       st.ScanPower,
			ScanFrequencies: toModelFrequencies(st.ScanFrequencies),
			ScanMode:        string(st.ScanMode),
		},
	}, nil
}

// GetConstraints returns the hardware limits detected at activation
func (h *MicrowaveHandler) GetConstraints(ctx context.Context, _ *struct{}) (*models.ConstraintsResponse, error) {
	c := h.source.Constraints()
	if c == nil {
		return nil, toHTTPError("Instrument not active", microwave.ErrNotActive)
	}

	resp := &models.ConstraintsResponse{}
	resp.Body.MinPower, resp.Body.MaxPower = c.PowerLimits()
	resp.Body.MinFrequency, resp.Body.MaxFrequency = c.FrequencyLimits()
	resp.Body.MinScanSize, resp.Body.MaxScanSize = c.ScanSizeLimits()
	for _, m := range c.ScanModes() {
		resp.Body.ScanModes = append(resp.Body.ScanModes, string(m))
	}
	return resp, nil
}

// GetCW returns the CW setpoint
func (h *MicrowaveHandler) GetCW(ctx context.Context, _ *struct{}) (*models.CWResponse, error) {
	return h.cwResponse(), nil
}

// SetCW updates CW frequency and/or power
func (h *MicrowaveHandler) SetCW(ctx context.Context, req *models.SetCWRequest) (*models.CWResponse, error) {
	if req.Body.Frequency == nil && req.Body.Power == nil {
		return nil, huma.Error400BadRequest("Nothing to update, give frequency and/or power")
	}

	if req.Body.Frequency != nil {
		if err := h.source.SetCWFrequency(ctx, *req.Body.Frequency); err != nil {
			return nil, toHTTPError("Failed to set CW frequency", err)
		}
	}
	if req.Body.Power != nil {
		if err := h.source.SetCWPower(ctx, *req.Body.Power); err != nil {
			return nil, toHTTPError("Failed to set CW power", err)
		}
	}

	resp := h.cwResponse()
	log.Info().Float64("frequency", resp.Body.Frequency).Float64("power", resp.Body.Power).Msg("CW setpoint updated")
	return resp, nil
}

// GetScan returns the scan setpoint
func (h *MicrowaveHandler) GetScan(ctx context.Context, _ *struct{}) (*models.ScanResponse, error) {
	return h.scanResponse(), nil
}

// SetScan updates scan power and/or frequencies
func (h *MicrowaveHandler) SetScan(ctx context.Context, req *models.SetScanRequest) (*models.ScanResponse, error) {
	if req.Body.Power == nil && req.Body.Frequencies == nil {
		return nil, huma.Error400BadRequest("Nothing to update, give power and/or frequencies")
	}

	if req.Body.Power != nil {
		if err := h.source.SetScanPower(ctx, *req.Body.Power); err != nil {
			return nil, toHTTPError("Failed to set scan power", err)
		}
	}
	if f := req.Body.Frequencies; f != nil {
		err := h.source.SetScanFrequencies(ctx, microwave.ScanFrequencies{Start: f.Start, Stop: f.Stop, Points: f.Points})
		if err != nil {
			return nil, toHTTPError("Failed to set scan frequencies", err)
		}
	}

	resp := h.scanResponse()
	log.Info().Float64("power", resp.Body.Power).Bool("frequencies_set", resp.Body.Frequencies != nil).Msg("Scan setpoint updated")
	return resp, nil
}

// GetScanMode returns the scan mode
func (h *MicrowaveHandler) GetScanMode(ctx context.Context, _ *struct{}) (*models.ScanModeResponse, error) {
	return &models.ScanModeResponse{
		Body: models.ScanModeBody{Mode: string(h.source.ScanMode())},
	}, nil
}

// SetScanMode selects a scan mode, which drops the configured sweep
func (h *MicrowaveHandler) SetScanMode(ctx context.Context, req *models.SetScanModeRequest) (*models.ScanModeResponse, error) {
	mode, err := microwave.ParseScanMode(req.Body.Mode)
	if err != nil {
		return nil, toHTTPError("Unknown scan mode", err)
	}
	if err := h.source.SetScanMode(mode); err != nil {
		return nil, toHTTPError("Failed to set scan mode", err)
	}
	return &models.ScanModeResponse{
		Body: models.ScanModeBody{Mode: string(h.source.ScanMode())},
	}, nil
}

// GetTriggerEdge reads the trigger slope from the instrument
func (h *MicrowaveHandler) GetTriggerEdge(ctx context.Context, _ *struct{}) (*models.TriggerEdgeResponse, error) {
	edge, err := h.source.TriggerEdge(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to read trigger edge", err)
	}
	return &models.TriggerEdgeResponse{
		Body: models.TriggerEdgeBody{Edge: string(edge)},
	}, nil
}

// SetTriggerEdge programs the trigger slope
func (h *MicrowaveHandler) SetTriggerEdge(ctx context.Context, req *models.SetTriggerEdgeRequest) (*models.TriggerEdgeResponse, error) {
	edge, err := microwave.ParseTriggerEdge(req.Body.Edge)
	if err != nil {
		return nil, toHTTPError("Unknown trigger edge", err)
	}
	if err := h.source.SetTriggerEdge(ctx, edge); err != nil {
		return nil, toHTTPError("Failed to set trigger edge", err)
	}
	return &models.TriggerEdgeResponse{
		Body: models.TriggerEdgeBody{Edge: string(edge)},
	}, nil
}

// Off switches the output off
func (h *MicrowaveHandler) Off(ctx context.Context, _ *struct{}) (*models.OutputResponse, error) {
	changed, err := h.source.Off(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to switch output off", err)
	}
	if changed {
		h.record(ctx, &models.OutputEvent{Kind: models.EventOff})
	}
	return h.outputResponse(ctx)
}

// CWOn starts CW output
func (h *MicrowaveHandler) CWOn(ctx context.Context, _ *struct{}) (*models.OutputResponse, error) {
	changed, err := h.source.CWOn(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to start CW output", err)
	}
	if changed {
		freq, power := h.source.CWFrequency(), h.source.CWPower()
		h.record(ctx, &models.OutputEvent{Kind: models.EventCWOn, Frequency: &freq, Power: &power})
	}
	return h.outputResponse(ctx)
}

// StartScan starts the configured frequency scan
func (h *MicrowaveHandler) StartScan(ctx context.Context, _ *struct{}) (*models.OutputResponse, error) {
	changed, err := h.source.StartScan(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to start frequency scan", err)
	}
	if changed {
		event := &models.OutputEvent{Kind: models.EventScanStart}
		power := h.source.ScanPower()
		event.Power = &power
		if f := h.source.ScanFrequencies(); f != nil {
			event.Start, event.Stop, event.Points = &f.Start, &f.Stop, &f.Points
		}
		h.record(ctx, event)
	}
	return h.outputResponse(ctx)
}

// ResetScan returns a running scan to its first frequency
func (h *MicrowaveHandler) ResetScan(ctx context.Context, _ *struct{}) (*models.OutputResponse, error) {
	changed, err := h.source.ResetScan(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to reset frequency scan", err)
	}
	if changed {
		h.record(ctx, &models.OutputEvent{Kind: models.EventScanReset})
	}
	return h.outputResponse(ctx)
}

// ListEvents returns the newest journal entries
func (h *MicrowaveHandler) ListEvents(ctx context.Context, req *models.ListEventsRequest) (*models.ListEventsResponse, error) {
	if h.events == nil {
		return nil, huma.Error503ServiceUnavailable("Event journal not configured")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events, err := h.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list events", err)
	}

	resp := &models.ListEventsResponse{}
	resp.Body.Events = events
	return resp, nil
}

// record writes a journal entry. Journal failures never fail the request.
func (h *MicrowaveHandler) record(ctx context.Context, event *models.OutputEvent) {
	if h.events == nil {
		return
	}
	event.ID = uuid.New().String()
	event.Model = h.source.Model()
	event.CreatedAt = time.Now()

	if err := h.events.Record(ctx, event); err != nil {
		log.Error().Err(err).Str("kind", event.Kind).Msg("Failed to record output event")
		return
	}
	log.Debug().Str("eventID", event.ID).Str("kind", event.Kind).Msg("Output event recorded")
}

func (h *MicrowaveHandler) cwResponse() *models.CWResponse {
	return &models.CWResponse{
		Body: models.CWSettingsBody{
			Frequency: h.source.CWFrequency(),
			Power:     h.source.CWPower(),
		},
	}
}

func (h *MicrowaveHandler) scanResponse() *models.ScanResponse {
	return &models.ScanResponse{
		Body: models.ScanSettingsBody{
			Power:       h.source.ScanPower(),
			Frequencies: toModelFrequencies(h.source.ScanFrequencies()),
		},
	}
}

func (h *MicrowaveHandler) outputResponse(ctx context.Context) (*models.OutputResponse, error) {
	scanning, err := h.source.IsScanning(ctx)
	if err != nil {
		return nil, toHTTPError("Failed to read output mode", err)
	}
	resp := &models.OutputResponse{}
	resp.Body.State = string(h.source.State())
	resp.Body.Scanning = scanning
	return resp, nil
}

func toModelFrequencies(f *microwave.ScanFrequencies) *models.ScanFrequencies {
	if f == nil {
		return nil
	}
	return &models.ScanFrequencies{Start: f.Start, Stop: f.Stop, Points: f.Points}
}

// toHTTPError maps session errors onto HTTP status codes
func toHTTPError(msg string, err error) error {
	switch {
	case errors.Is(err, microwave.ErrInvalidState):
		return huma.Error409Conflict(msg, err)
	case errors.Is(err, microwave.ErrOutOfBounds), errors.Is(err, microwave.ErrUnsupported):
		return huma.Error422UnprocessableEntity(msg, err)
	case errors.Is(err, microwave.ErrNotActive):
		return huma.Error503ServiceUnavailable(msg, err)
	case errors.Is(err, microwave.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(msg, err)
	default:
		return huma.Error502BadGateway(msg, err)
	}
}
