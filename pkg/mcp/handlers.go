package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/translate"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brokerStatus := "disabled"
	if s.broker != nil {
		brokerStatus = "disconnected"
		if s.broker.IsConnected() {
			brokerStatus = "connected"
		}
	}

	status := "healthy"
	if brokerStatus == "disconnected" {
		status = "degraded"
	}

	out := GetHealthOutput{
		Status:      status,
		Broker:      brokerStatus,
		Diagnostics: map[string]int{},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if s.recorder != nil {
		out.Diagnostics = s.recorder.Counts()
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetDiagnostics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetDiagnosticsOutput{Counts: map[string]int{}, Recent: []DiagnosticInfo{}}
	if s.recorder != nil {
		out.Counts = s.recorder.Counts()
		for _, e := range s.recorder.Recent() {
			info := DiagnosticInfo{
				Kind:     string(e.Kind),
				DeviceID: e.DeviceID,
				UserID:   e.UserID,
				At:       e.At.UTC().Format(time.RFC3339),
			}
			if e.Err != nil {
				info.Error = e.Err.Error()
			}
			out.Recent = append(out.Recent, info)
		}
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := requiredString(request, "user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	devices, err := s.directory.ListDevicesForUser(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list devices: %s", err)), nil
	}

	infos := make([]DeviceInfo, 0, len(devices))
	for i := range devices {
		infos = append(infos, DeviceToInfo(&devices[i], translate.SliderToBrightness))
	}

	return mcp.NewToolResultText(formatJSON(ListDevicesOutput{Devices: infos, Count: len(infos)})), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := requiredString(request, "user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deviceID, err := requiredString(request, "device_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	d, err := s.directory.GetDeviceForUser(ctx, userID, deviceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(GetDeviceOutput{Device: DeviceToInfo(d, translate.SliderToBrightness)})), nil
}

func (s *Server) handleSendDirective(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["directive"]
	if !ok || raw == nil {
		return mcp.NewToolResultError(`required parameter "directive" is missing`), nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid directive: %s", err)), nil
	}

	var req alexa.Request
	if err := json.Unmarshal(b, &req); err != nil || req.Directive.Header.Name == "" {
		// accept the inner directive object as well
		req = alexa.Request{}
		if err := json.Unmarshal(b, &req.Directive); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid directive: %s", err)), nil
		}
	}
	if req.Directive.Header.Name == "" || req.Directive.Header.Namespace == "" {
		return mcp.NewToolResultError("directive header needs namespace and name"), nil
	}
	if req.Directive.Header.MessageID == "" {
		req.Directive.Header.MessageID = alexa.NewMessageID()
	}

	return s.dispatch(ctx, req.Directive), nil
}

func (s *Server) handleSetPower(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, deviceID, err := tokenAndDevice(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	on, ok := request.GetArguments()["on"].(bool)
	if !ok {
		return mcp.NewToolResultError(`parameter "on" must be a boolean`), nil
	}

	name := "TurnOff"
	if on {
		name = "TurnOn"
	}
	return s.dispatch(ctx, endpointDirective(alexa.NamespacePowerController, name, deviceID, token, nil)), nil
}

func (s *Server) handleSetBrightness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, deviceID, err := tokenAndDevice(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, ok := request.GetArguments()["brightness"].(float64)
	if !ok {
		return mcp.NewToolResultError(`parameter "brightness" must be a number`), nil
	}

	payload, _ := json.Marshal(map[string]int{"brightness": int(b)})
	return s.dispatch(ctx, endpointDirective(alexa.NamespaceBrightnessController, "SetBrightness", deviceID, token, payload)), nil
}

// dispatch runs the directive and renders the envelope. ErrorResponse
// envelopes are flagged as tool errors.
func (s *Server) dispatch(ctx context.Context, d alexa.Directive) *mcp.CallToolResult {
	resp := s.dispatcher.Handle(ctx, d)
	if resp.IsError() {
		return mcp.NewToolResultError(formatJSON(resp))
	}
	return mcp.NewToolResultText(formatJSON(resp))
}

func endpointDirective(namespace, name, deviceID, token string, payload json.RawMessage) alexa.Directive {
	return alexa.Directive{
		Header: alexa.Header{
			Namespace:        namespace,
			Name:             name,
			MessageID:        alexa.NewMessageID(),
			CorrelationToken: alexa.NewMessageID(),
			PayloadVersion:   alexa.PayloadVersion,
		},
		Endpoint: &alexa.Endpoint{
			EndpointID: deviceID,
			Scope:      &alexa.Scope{Type: "BearerToken", Token: token},
		},
		Payload: payload,
	}
}

// --- helpers ---

func tokenAndDevice(request mcp.CallToolRequest) (string, string, error) {
	token, err := requiredString(request, "token")
	if err != nil {
		return "", "", err
	}
	deviceID, err := requiredString(request, "device_id")
	if err != nil {
		return "", "", err
	}
	return token, deviceID, nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
