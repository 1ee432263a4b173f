package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/scheduler/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders handler errors as ErrorBody. Internal causes are
// logged and never sent to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func render(err error) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		return he.Code, ErrorBody{Code: codeFor(he.Code), Message: msg}
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, ErrorBody{Code: string(apperr.KindInternal), Message: "internal server error"}
	}
	switch ae.Kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, ErrorBody{Code: string(ae.Kind), Message: "unauthorized"}
	case apperr.KindInternal:
		return http.StatusInternalServerError, ErrorBody{Code: string(ae.Kind), Message: "internal server error"}
	}
	return apperr.Status(ae.Kind), ErrorBody{Code: string(ae.Kind), Message: ae.Message}
}

// statusOf is the status render would choose, for logging before the error
// handler runs.
func statusOf(err error) int {
	status, _ := render(err)
	return status
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.KindMalformed)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusConflict:
		return string(apperr.KindConflict)
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	if status >= http.StatusInternalServerError {
		return string(apperr.KindInternal)
	}
	return fmt.Sprintf("http_%d", status)
}
