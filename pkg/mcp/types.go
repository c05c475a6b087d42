package mcp

import "github.com/urmzd/homai-alexa/pkg/device"

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status      string         `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	Broker      string         `json:"broker" jsonschema:"description=Broker connection status"`
	Diagnostics map[string]int `json:"diagnostics" jsonschema:"description=Diagnostic counters by kind"`
	Timestamp   string         `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- Diagnostics Tool ---

// DiagnosticInfo is one diagnostic event
type DiagnosticInfo struct {
	Kind     string `json:"kind"`
	DeviceID string `json:"device_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Error    string `json:"error,omitempty"`
	At       string `json:"at"`
}

// GetDiagnosticsOutput is the output for the get_diagnostics tool
type GetDiagnosticsOutput struct {
	Counts map[string]int   `json:"counts"`
	Recent []DiagnosticInfo `json:"recent"`
}

// --- Device Tools ---

// DeviceInfo represents a device in tool outputs
type DeviceInfo struct {
	ID           string  `json:"id" jsonschema:"description=Device id"`
	Name         string  `json:"name" jsonschema:"description=Display name"`
	Type         string  `json:"type" jsonschema:"description=Switch, Fan, DimmableLight or RGB"`
	PowerState   bool    `json:"power_state"`
	Brightness   *int    `json:"brightness,omitempty" jsonschema:"description=Brightness percent for dimmable devices"`
	Color        *string `json:"color,omitempty" jsonschema:"description=Hex color for RGB devices"`
	Connectivity bool    `json:"connectivity"`
	Revision     int64   `json:"revision"`
}

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Devices []DeviceInfo `json:"devices"`
	Count   int          `json:"count"`
}

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device DeviceInfo `json:"device"`
}

// DeviceToInfo converts a descriptor to DeviceInfo, reporting brightness in
// percent rather than the device slider range.
func DeviceToInfo(d *device.Descriptor, brightness func(int) int) DeviceInfo {
	info := DeviceInfo{
		ID:           d.DeviceID,
		Name:         d.DisplayName,
		Type:         string(d.Type),
		PowerState:   d.PowerState,
		Connectivity: d.Connectivity,
		Revision:     d.Revision,
	}
	if d.Type.SupportsBrightness() {
		b := brightness(d.SliderValue)
		info.Brightness = &b
	}
	if d.Type.SupportsColor() && d.ColorHex != nil {
		c := *d.ColorHex
		info.Color = &c
	}
	return info
}
