package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/api/types"
)

// maxDirectiveBytes caps inbound envelopes.
const maxDirectiveBytes = 1 << 20

// Dispatcher handles one decoded directive
type Dispatcher interface {
	Handle(ctx context.Context, d alexa.Directive) *alexa.Response
}

// EnvelopeValidator checks a raw directive body before it is decoded
type EnvelopeValidator interface {
	ValidateDirective(body []byte) error
}

// DirectivesHandler is the platform-facing directive endpoint
type DirectivesHandler struct {
	dispatcher Dispatcher
	validator  EnvelopeValidator
}

// NewDirectivesHandler creates a new directives handler
func NewDirectivesHandler(dispatcher Dispatcher, validator EnvelopeValidator) *DirectivesHandler {
	return &DirectivesHandler{dispatcher: dispatcher, validator: validator}
}

// Handle handles POST /directives
// @Summary      Handle a smart home directive
// @Description  Accepts a directive envelope and returns the response envelope. Handling failures are reported as an Alexa.ErrorResponse event with HTTP 200. A bearer token in the Authorization header is used when no scope in the envelope carries one.
// @Tags         directives
// @Accept       json
// @Produce      json
// @Param        request  body      object  true  "Directive envelope"
// @Success      200      {object}  object  "Response or ErrorResponse envelope"
// @Failure      400      {object}  types.ErrorResponse  "Malformed envelope"
// @Router       /directives [post]
func (h *DirectivesHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDirectiveBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read request body",
		})
		return
	}

	if h.validator != nil {
		if err := h.validator.ValidateDirective(body); err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}
	}

	var req alexa.Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid directive envelope",
		})
		return
	}

	if auth := c.GetHeader("Authorization"); auth != "" {
		req.Directive.TransportToken = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}

	c.JSON(http.StatusOK, h.dispatcher.Handle(c.Request.Context(), req.Directive))
}
