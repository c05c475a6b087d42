package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/api/types"
	"github.com/urmzd/homai-alexa/pkg/identity"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// SetupMiddleware installs recovery, request ids, logging and CORS.
func SetupMiddleware(r *gin.Engine) {
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// RequestID echoes the caller's X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request. The level follows the status class.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(RequestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// UserIDKey holds the caller's resolved user id in the gin context.
const UserIDKey = "user_id"

// Resolver maps a bearer token to a user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// RequireUser resolves the Authorization bearer and only lets the request
// through when the caller is the user named by the :id path parameter.
func RequireUser(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolver == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error:   "unauthorized",
				Message: "Authentication is not configured",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		var (
			userID string
			err    = identity.ErrMissingToken
		)
		if token != "" {
			userID, err = resolver.Resolve(c.Request.Context(), token)
		}
		if err != nil {
			message := "Invalid bearer token"
			if errors.Is(err, identity.ErrMissingToken) {
				message = "Missing bearer token"
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error:   "unauthorized",
				Message: message,
			})
			return
		}

		if userID != c.Param("id") {
			log.Warn().
				Str("request_id", c.GetString(RequestIDHeader)).
				Str("caller", userID).
				Str("target", c.Param("id")).
				Msg("Rejected cross-user request")
			c.AbortWithStatusJSON(http.StatusForbidden, types.ErrorResponse{
				Error:   "forbidden",
				Message: "Token does not belong to this user",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
