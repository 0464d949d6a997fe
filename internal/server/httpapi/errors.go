package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorJobRunning):
		return http.StatusConflict
	case errors.Is(err, common.ErrorUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
