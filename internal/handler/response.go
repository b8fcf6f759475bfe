package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edugenius/edugenius-api/internal/apperror"
)

// envelope is the uniform response body: {statusCode, statusText, message}
// plus optional data.  Both success and error responses use it.
type envelope struct {
	StatusCode int         `json:"statusCode"`
	StatusText string      `json:"statusText"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, envelope{
		StatusCode: status,
		StatusText: "success",
		Message:    message,
		Data:       data,
	})
}

// ErrorHandler renders every error that escapes a handler or middleware as
// the standard envelope.  apperror kinds map to their fixed status codes;
// anything unclassified is logged and collapsed to a generic 500 so
// internals never leak to clients.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error!"

		var ae *apperror.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = apperror.StatusCode(ae.Kind)
			message = ae.Message
		case errors.As(err, &he):
			status = he.Code
			message = fmt.Sprint(he.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		_ = c.JSON(status, envelope{
			StatusCode: status,
			StatusText: "error",
			Message:    message,
		})
	}
}
