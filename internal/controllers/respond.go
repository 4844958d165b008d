package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"site_tracker/internal/buildingapi"
	"site_tracker/internal/geofence"
	"site_tracker/internal/ledger"
	"site_tracker/internal/middleware"
	"site_tracker/internal/provisioning"
	"site_tracker/internal/upload"
)

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &clientError{msg: msg}
}

type clientError struct{ msg string }

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return errBadRequest }

// statusFor maps a service error to an HTTP status and a message safe to
// show to clients.
func statusFor(err error) (int, string) {
	var se *buildingapi.StatusError
	switch {
	case errors.Is(err, middleware.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, errBadRequest),
		errors.Is(err, geofence.ErrInvalidRequest),
		errors.Is(err, upload.ErrInvalidRequest),
		errors.Is(err, ledger.ErrInvalidSession),
		errors.Is(err, ledger.ErrInvalidHistory):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, upload.ErrNoSessionToday):
		return http.StatusForbidden, "No visit scheduled today"
	case errors.Is(err, provisioning.ErrAlreadyRunning):
		return http.StatusConflict, "Provisioning is already running"
	case errors.Is(err, buildingapi.ErrTimeout):
		return http.StatusGatewayTimeout, "External service timed out"
	case errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden):
		return http.StatusUnauthorized, "Token rejected by the identity provider"
	case errors.Is(err, buildingapi.ErrRejected), errors.Is(err, buildingapi.ErrUnavailable):
		return http.StatusBadGateway, "External service unavailable"
	case errors.Is(err, provisioning.ErrAdminBootstrap):
		return http.StatusBadGateway, "Admin bootstrap failed"
	case errors.Is(err, ledger.ErrUnavailable):
		return http.StatusServiceUnavailable, "Session storage unavailable"
	}
	return http.StatusInternalServerError, "Internal error"
}

// respondError writes the standard {status, message} error body.
func respondError(c *gin.Context, err error) {
	respondErrorWith(c, err, nil)
}

// respondErrorWith adds endpoint-specific fields to the error body.
func respondErrorWith(c *gin.Context, err error, extra gin.H) {
	code, msg := statusFor(err)
	entry := middleware.Log(c).WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	body := gin.H{"status": "error", "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}
