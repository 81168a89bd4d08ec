package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velmie/stockrelay"
)

// Error codes returned in APIError.Code.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeBadRequest      = "BAD_REQUEST"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternal        = "INTERNAL"
	CodeUnavailable     = "UNAVAILABLE"
)

// APIError is the body of every error response.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func respondWithError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, APIError{Error: message, Code: code, Details: details})
}

// statusFor maps ingestion errors to HTTP responses.
func statusFor(err error) (int, string, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, stockrelay.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, "unauthorized"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large"
	case errors.Is(err, stockrelay.ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, "sync failed"
	}
}
