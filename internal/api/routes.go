package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/smbv/internal/api/handlers"
	"github.com/RMahshie/smbv/internal/repository"
)

// RegisterRoutes sets up all API routes. events may be nil.
func RegisterRoutes(api huma.API, source handlers.MicrowaveSource, events repository.EventRepository) {
	// Initialize handlers
	h := handlers.NewMicrowaveHandler(source, events)

	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Get source status",
		Description: "Returns model, output state and the cached setpoints",
		Tags:        []string{"Microwave"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getConstraints",
		Method:      http.MethodGet,
		Path:        "/api/constraints",
		Summary:     "Get hardware constraints",
		Description: "Returns power, frequency and scan size limits of the detected model",
		Tags:        []string{"Microwave"},
	}, h.GetConstraints)

	huma.Register(api, huma.Operation{
		OperationID: "getCW",
		Method:      http.MethodGet,
		Path:        "/api/cw",
		Summary:     "Get CW setpoint",
		Tags:        []string{"CW"},
	}, h.GetCW)

	huma.Register(api, huma.Operation{
		OperationID: "setCW",
		Method:      http.MethodPut,
		Path:        "/api/cw",
		Summary:     "Set CW setpoint",
		Description: "Programs CW frequency and/or power. Fails while output is on.",
		Tags:        []string{"CW"},
	}, h.SetCW)

	huma.Register(api, huma.Operation{
		OperationID: "getScan",
		Method:      http.MethodGet,
		Path:        "/api/scan",
		Summary:     "Get scan setpoint",
		Tags:        []string{"Scan"},
	}, h.GetScan)

	huma.Register(api, huma.Operation{
		OperationID: "setScan",
		Method:      http.MethodPut,
		Path:        "/api/scan",
		Summary:     "Set scan setpoint",
		Description: "Programs scan power and/or the equidistant sweep. Fails while output is on.",
		Tags:        []string{"Scan"},
	}, h.SetScan)

	huma.Register(api, huma.Operation{
		OperationID: "getScanMode",
		Method:      http.MethodGet,
		Path:        "/api/scan/mode",
		Summary:     "Get scan mode",
		Tags:        []string{"Scan"},
	}, h.GetScanMode)

	huma.Register(api, huma.Operation{
		OperationID: "setScanMode",
		Method:      http.MethodPut,
		Path:        "/api/scan/mode",
		Summary:     "Set scan mode",
		Description: "Selects the scan mode and clears the configured sweep",
		Tags:        []string{"Scan"},
	}, h.SetScanMode)

	huma.Register(api, huma.Operation{
		OperationID: "getTriggerEdge",
		Method:      http.MethodGet,
		Path:        "/api/trigger-edge",
		Summary:     "Get trigger edge",
		Tags:        []string{"Trigger"},
	}, h.GetTriggerEdge)

	huma.Register(api, huma.Operation{
		OperationID: "setTriggerEdge",
		Method:      http.MethodPut,
		Path:        "/api/trigger-edge",
		Summary:     "Set trigger edge",
		Tags:        []string{"Trigger"},
	}, h.SetTriggerEdge)

	huma.Register(api, huma.Operation{
		OperationID: "outputOff",
		Method:      http.MethodPost,
		Path:        "/api/output/off",
		Summary:     "Switch output off",
		Description: "Returns after the instrument reports the output off",
		Tags:        []string{"Output"},
	}, h.Off)

	huma.Register(api, huma.Operation{
		OperationID: "cwOn",
		Method:      http.MethodPost,
		Path:        "/api/output/cw",
		Summary:     "Start CW output",
		Description: "Returns after the instrument reports the output on",
		Tags:        []string{"Output"},
	}, h.CWOn)

	huma.Register(api, huma.Operation{
		OperationID: "startScan",
		Method:      http.MethodPost,
		Path:        "/api/scan/start",
		Summary:     "Start frequency scan",
		Description: "Arms the configured sweep and switches the output on",
		Tags:        []string{"Output"},
	}, h.StartScan)

	huma.Register(api, huma.Operation{
		OperationID: "resetScan",
		Method:      http.MethodPost,
		Path:        "/api/scan/reset",
		Summary:     "Reset frequency scan",
		Description: "Returns a running sweep to its first frequency",
		Tags:        []string{"Output"},
	}, h.ResetScan)

	huma.Register(api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "List output events",
		Description: "Returns the newest output transitions from the journal",
		Tags:        []string{"Journal"},
	}, h.ListEvents)
}
