package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/smbv/internal/bus/bustest"
	"github.com/RMahshie/smbv/internal/microwave"
	"github.com/RMahshie/smbv/pkg/models"
)

func setupAPI(t *testing.T) (humatest.TestAPI, *bustest.Instrument, *microwave.Session) {
	t.Helper()

	fake := bustest.NewInstrument("SMBV100A")
	session := microwave.NewSession(microwave.Options{Dial: fake.Dial, PollInterval: time.Millisecond})
	require.NoError(t, session.Activate(context.Background()))
	t.Cleanup(func() { _ = session.Deactivate() })

	_, api := humatest.New(t)
	RegisterRoutes(api, session, nil)
	return api, fake, session
}

func TestRoutes_CWFlow(t *testing.T) {
	api, fake, _ := setupAPI(t)

	resp := api.Put("/api/cw", map[string]any{"frequency": 3.0e9, "power": -12.5})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var cw models.CWSettingsBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cw))
	assert.Equal(t, 3.0e9, cw.Frequency)
	assert.Equal(t, -12.5, cw.Power)

	resp = api.Post("/api/output/cw")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, fake.Output)

	// setpoints are locked while the output is on
	resp = api.Put("/api/cw", map[string]any{"power": -10.0})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Post("/api/output/off")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.False(t, fake.Output)

	var out struct {
		State    string `json:"state"`
		Scanning bool   `json:"scanning"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "idle", out.State)
	assert.False(t, out.Scanning)
}

func TestRoutes_ScanFlow(t *testing.T) {
	api, fake, _ := setupAPI(t)

	resp := api.Put("/api/scan", map[string]any{
		"power":       -15.0,
		"frequencies": map[string]any{"start": 1.0e9, "stop": 2.0e9, "points": 5},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 0.75e9, fake.SweepStart)
	assert.Equal(t, 2.0e9, fake.SweepStop)

	resp = api.Post("/api/scan/start")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"scanning":true`)

	resp = api.Post("/api/scan/reset")
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Get("/api/status")
	require.Equal(t, http.StatusOK, resp.Code)
	var status models.StatusResponseBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Equal(t, "SMBV100A", status.Model)
	assert.Equal(t, "locked", status.State)
	assert.True(t, status.Scanning)
	require.NotNil(t, status.ScanFrequencies)
	assert.Equal(t, 5, status.ScanFrequencies.Points)
}

func TestRoutes_Errors(t *testing.T) {
	api, _, _ := setupAPI(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{name: "power out of bounds", method: http.MethodPut, path: "/api/cw", body: map[string]any{"power": 40.0}, wantStatus: http.StatusUnprocessableEntity},
		{name: "frequency out of bounds", method: http.MethodPut, path: "/api/cw", body: map[string]any{"frequency": 7.0e9}, wantStatus: http.StatusUnprocessableEntity},
		{name: "too few points", method: http.MethodPut, path: "/api/scan", body: map[string]any{"frequencies": map[string]any{"start": 1.0e9, "stop": 2.0e9, "points": 1}}, wantStatus: http.StatusUnprocessableEntity},
		{name: "empty update", method: http.MethodPut, path: "/api/cw", body: map[string]any{}, wantStatus: http.StatusBadRequest},
		{name: "scan without frequencies", method: http.MethodPost, path: "/api/scan/start", wantStatus: http.StatusConflict},
		{name: "jump list unsupported", method: http.MethodPut, path: "/api/scan/mode", body: map[string]any{"mode": "JUMP_LIST"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "journal disabled", method: http.MethodGet, path: "/api/events", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []any
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := api.Do(tt.method, tt.path, args...)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
		})
	}
}

func TestRoutes_TriggerEdgeAndConstraints(t *testing.T) {
	api, fake, _ := setupAPI(t)

	resp := api.Put("/api/trigger-edge", map[string]any{"edge": "FALLING"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "NEG", fake.Slope)

	resp = api.Get("/api/trigger-edge")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"edge":"FALLING"`)

	resp = api.Get("/api/constraints")
	require.Equal(t, http.StatusOK, resp.Code)
	var c models.ConstraintsResponseBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &c))
	assert.Equal(t, 6e9, c.MaxFrequency)
	assert.Equal(t, []string{"EQUIDISTANT_SWEEP"}, c.ScanModes)
}
