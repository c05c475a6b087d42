package types

import (
	"time"

	"github.com/urmzd/homai-alexa/pkg/device"
)

// --- Request DTOs ---

// SetAccessTokenRequest is the request body for PUT /users/:id/access-token
type SetAccessTokenRequest struct {
	AccessToken      string `json:"access_token" binding:"required"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status      string         `json:"status"`
	Broker      string         `json:"broker"`
	Diagnostics map[string]int `json:"diagnostics"`
	Timestamp   time.Time      `json:"timestamp"`
}

// DiagnosticEvent is one swallowed failure
type DiagnosticEvent struct {
	Kind     string    `json:"kind"`
	DeviceID string    `json:"device_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// DiagnosticsResponse is returned from GET /diagnostics
type DiagnosticsResponse struct {
	Counts map[string]int    `json:"counts"`
	Recent []DiagnosticEvent `json:"recent"`
}

// ListDevicesResponse is returned from GET /users/:id/devices
type ListDevicesResponse struct {
	Devices []device.Descriptor `json:"devices"`
	Count   int                 `json:"count"`
}

// DeviceResponse is returned from GET /users/:id/devices/:deviceId
type DeviceResponse struct {
	Device device.Descriptor `json:"device"`
}

// AccessTokenResponse is returned from PUT /users/:id/access-token
type AccessTokenResponse struct {
	UserID    string     `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
