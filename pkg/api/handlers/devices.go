package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/homai-alexa/pkg/api/types"
	"github.com/urmzd/homai-alexa/pkg/device"
)

// DevicesHandler exposes a user's devices and their last observed state
type DevicesHandler struct {
	directory device.Directory
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(directory device.Directory) *DevicesHandler {
	return &DevicesHandler{directory: directory}
}

// ListDevices handles GET /users/:id/devices
// @Summary      List a user's devices
// @Description  Returns every device owned by the user with its last observed state
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  types.ListDevicesResponse
// @Failure      401  {object}  types.ErrorResponse  "Missing or invalid bearer token"
// @Failure      403  {object}  types.ErrorResponse  "Token belongs to another user"
// @Failure      500  {object}  types.ErrorResponse  "Directory error"
// @Router       /users/{id}/devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	devices, err := h.directory.ListDevicesForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})
}

// GetDevice handles GET /users/:id/devices/:deviceId
// @Summary      Get a device
// @Description  Returns one device if it belongs to the user
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "User id"
// @Param        deviceId  path      string  true  "Device id"
// @Success      200       {object}  types.DeviceResponse
// @Failure      401       {object}  types.ErrorResponse  "Missing or invalid bearer token"
// @Failure      403       {object}  types.ErrorResponse  "Token belongs to another user"
// @Failure      404       {object}  types.ErrorResponse  "Device not found"
// @Failure      500       {object}  types.ErrorResponse  "Directory error"
// @Router       /users/{id}/devices/{deviceId} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	d, err := h.directory.GetDeviceForUser(c.Request.Context(), c.Param("id"), c.Param("deviceId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DeviceResponse{Device: *d})
}
