package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

const bearerPrefix = "Bearer "

// authenticate checks the bearer key on every request.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := bearerToken(c.GetHeader("Authorization"))

		err := s.ports.Auth.Authorize(c.Request.Context(), credential)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, domain.ErrAuthRequired):
			c.Header("WWW-Authenticate", `Bearer realm="lettermerge"`)
			abort(c, http.StatusUnauthorized, err)
		case errors.Is(err, domain.ErrAuthInvalid):
			abort(c, http.StatusForbidden, err)
		default:
			abort(c, http.StatusInternalServerError, err)
		}
	}
}

// bearerToken extracts the key from an Authorization header.
func bearerToken(header string) string {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchInProgress), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
