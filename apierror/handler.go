package apierror

import (
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is an echo.HTTPErrorHandler that renders every error kind of
// the taxonomy as its structured JSON body. Wire it with
// e.HTTPErrorHandler = apierror.ErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	rendered := renderForHTTP(err, c)
	if rendered.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(rendered.Status)
	} else {
		writeErr = c.JSON(rendered.Status, rendered.Body)
	}
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("write error response")
	}
}

func renderForHTTP(err error, c echo.Context) Rendered {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := messageString(httpErr.Message)
		return Rendered{
			Status: httpErr.Code,
			Body: Body{
				Message: msg,
				Code:    CodeInternalError,
				Errors: []Item{
					{Type: "HTTP Error", Severity: SeverityError, Message: msg},
				},
			},
		}
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return Rendered{
			Status: http.StatusServiceUnavailable,
			Body: Body{
				Message: "Connection Error",
				Code:    CodeAPIError,
				Errors: []Item{
					{
						Type:     "Connection Error",
						Severity: SeverityError,
						Message:  err.Error() + ": " + c.Request().URL.String(),
					},
				},
			},
		}
	}

	return Render(err)
}
