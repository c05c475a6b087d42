package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-alexa/pkg/broker"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
	"github.com/urmzd/homai-alexa/pkg/directive"
	"github.com/urmzd/homai-alexa/pkg/identity"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(ctx context.Context, token string) (string, error) {
	if uid, ok := r[token]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("%w: %w", identity.ErrUnauthorized, identity.ErrUnknownUser)
}

type recordingPublisher struct {
	mu       sync.Mutex
	commands []broker.Command
}

func (p *recordingPublisher) Publish(ctx context.Context, cmd broker.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, cmd)
}

func newTestServer() (*Server, *recordingPublisher) {
	dir := device.NewMemoryDirectory()
	dir.PutUser(device.User{UserID: "u1", Email: "ada@example.com"})
	dir.PutDevice(device.Descriptor{DeviceID: "dim-1", OwnerUserID: "u1", DisplayName: "Lamp", Type: device.TypeDimmableLight, SliderValue: 45})
	dir.PutDevice(device.Descriptor{DeviceID: "sw-1", OwnerUserID: "u1", DisplayName: "Kettle", Type: device.TypeSwitch})

	pub := &recordingPublisher{}
	disp := directive.NewDispatcher(staticResolver{"tok-u1": "u1"}, dir, pub)
	rec := diag.NewRecorder(5)
	rec.Report(diag.Event{Kind: diag.ReportDroppedNoToken, DeviceID: "dim-1", UserID: "u1"})
	return NewServer(dir, disp, nil, rec), pub
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestGetHealth(t *testing.T) {
	s, _ := newTestServer()

	res, err := s.handleGetHealth(context.Background(), call(nil))
	require.NoError(t, err)

	var out GetHealthOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "disabled", out.Broker)
	assert.Equal(t, 1, out.Diagnostics[string(diag.ReportDroppedNoToken)])
}

func TestGetDiagnostics(t *testing.T) {
	s, _ := newTestServer()

	res, err := s.handleGetDiagnostics(context.Background(), call(nil))
	require.NoError(t, err)

	var out GetDiagnosticsOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out.Recent, 1)
	assert.Equal(t, "u1", out.Recent[0].UserID)
}

func TestListDevices(t *testing.T) {
	s, _ := newTestServer()

	res, err := s.handleListDevices(context.Background(), call(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out ListDevicesOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Equal(t, 2, out.Count)
	require.NotNil(t, out.Devices[0].Brightness)
	assert.Equal(t, 50, *out.Devices[0].Brightness)
	assert.Nil(t, out.Devices[1].Brightness)
}

func TestGetDeviceMissingArgs(t *testing.T) {
	s, _ := newTestServer()

	res, err := s.handleGetDevice(context.Background(), call(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleGetDevice(context.Background(), call(map[string]any{"user_id": "u2", "device_id": "sw-1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSendDirective(t *testing.T) {
	s, pub := newTestServer()

	inner := map[string]any{
		"header":   map[string]any{"namespace": "PowerController", "name": "TurnOn"},
		"endpoint": map[string]any{"endpointId": "sw-1", "scope": map[string]any{"type": "BearerToken", "token": "tok-u1"}},
	}

	res, err := s.handleSendDirective(context.Background(), call(map[string]any{"directive": inner}))
	require.NoError(t, err)
	assert.False(t, res.IsError, resultText(t, res))
	require.Len(t, pub.commands, 1)
	assert.Equal(t, "sw-1", pub.commands[0].DeviceID)

	wrapped := map[string]any{"directive": inner}
	res, err = s.handleSendDirective(context.Background(), call(map[string]any{"directive": wrapped}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Len(t, pub.commands, 2)
}

func TestSendDirectiveRejectsIncompleteHeader(t *testing.T) {
	s, pub := newTestServer()

	res, err := s.handleSendDirective(context.Background(), call(map[string]any{"directive": map[string]any{"header": map[string]any{"name": "TurnOn"}}}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, pub.commands)
}

func TestSetPowerAndBrightness(t *testing.T) {
	s, pub := newTestServer()

	res, err := s.handleSetPower(context.Background(), call(map[string]any{"token": "tok-u1", "device_id": "sw-1", "on": false}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleSetBrightness(context.Background(), call(map[string]any{"token": "tok-u1", "device_id": "dim-1", "brightness": float64(50)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	require.Len(t, pub.commands, 2)
	assert.False(t, pub.commands[0].State)
	require.NotNil(t, pub.commands[1].SliderValue)
	assert.Equal(t, 45, *pub.commands[1].SliderValue)
}

func TestSetBrightnessOnSwitchIsToolError(t *testing.T) {
	s, pub := newTestServer()

	res, err := s.handleSetBrightness(context.Background(), call(map[string]any{"token": "tok-u1", "device_id": "sw-1", "brightness": float64(50)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "ErrorResponse")
	assert.Empty(t, pub.commands)
}
