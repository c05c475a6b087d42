package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/api/types"
	"github.com/urmzd/homai-alexa/pkg/device"
)

// UsersHandler manages per-user platform credentials
type UsersHandler struct {
	directory device.Directory
	now       func() time.Time
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(directory device.Directory) *UsersHandler {
	return &UsersHandler{directory: directory, now: time.Now}
}

// SetAccessToken handles PUT /users/:id/access-token
// @Summary      Store event gateway credential
// @Description  Stores the token used to push change reports for the user. Omit expires_in_seconds for a token that does not expire.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "User id"
// @Param        request  body      types.SetAccessTokenRequest  true  "Credential"
// @Success      200      {object}  types.AccessTokenResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      401      {object}  types.ErrorResponse  "Missing or invalid bearer token"
// @Failure      403      {object}  types.ErrorResponse  "Token belongs to another user"
// @Failure      404      {object}  types.ErrorResponse  "User not found"
// @Failure      500      {object}  types.ErrorResponse  "Directory error"
// @Router       /users/{id}/access-token [put]
func (h *UsersHandler) SetAccessToken(c *gin.Context) {
	userID := c.Param("id")

	var req types.SetAccessTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "access_token is required",
		})
		return
	}
	if req.ExpiresInSeconds < 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "expires_in_seconds must not be negative",
		})
		return
	}

	var expiresAt time.Time
	resp := types.AccessTokenResponse{UserID: userID}
	if req.ExpiresInSeconds > 0 {
		expiresAt = h.now().Add(time.Duration(req.ExpiresInSeconds) * time.Second).UTC()
		resp.ExpiresAt = &expiresAt
	}

	if err := h.directory.SetAccessToken(c.Request.Context(), userID, req.AccessToken, expiresAt); err != nil {
		writeError(c, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Stored event gateway credential")
	c.JSON(http.StatusOK, resp)
}
