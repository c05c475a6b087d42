package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/homai-alexa/pkg/api/types"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

// BrokerStatus reports whether the device broker is reachable
type BrokerStatus interface {
	IsConnected() bool
}

// HealthHandler handles health and diagnostics endpoints
type HealthHandler struct {
	broker   BrokerStatus
	recorder *diag.Recorder
}

// NewHealthHandler creates a new health handler. broker may be nil when the
// adapter runs without a broker.
func NewHealthHandler(broker BrokerStatus, recorder *diag.Recorder) *HealthHandler {
	return &HealthHandler{broker: broker, recorder: recorder}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns broker connectivity and diagnostic counters
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	brokerStatus := "disabled"
	if h.broker != nil {
		brokerStatus = "disconnected"
		if h.broker.IsConnected() {
			brokerStatus = "connected"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if brokerStatus == "disconnected" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	counts := map[string]int{}
	if h.recorder != nil {
		counts = h.recorder.Counts()
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:      status,
		Broker:      brokerStatus,
		Diagnostics: counts,
		Timestamp:   time.Now(),
	})
}

// Diagnostics handles GET /diagnostics
// @Summary      Recent diagnostics
// @Description  Returns failures that were not surfaced to callers, such as failed publishes and dropped change reports
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.DiagnosticsResponse
// @Router       /diagnostics [get]
func (h *HealthHandler) Diagnostics(c *gin.Context) {
	resp := types.DiagnosticsResponse{Counts: map[string]int{}, Recent: []types.DiagnosticEvent{}}
	if h.recorder != nil {
		resp.Counts = h.recorder.Counts()
		for _, e := range h.recorder.Recent() {
			ev := types.DiagnosticEvent{
				Kind:     string(e.Kind),
				DeviceID: e.DeviceID,
				UserID:   e.UserID,
				At:       e.At,
			}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			resp.Recent = append(resp.Recent, ev)
		}
	}
	c.JSON(http.StatusOK, resp)
}
