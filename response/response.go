// Package response shapes successful handler output as the uniform
// {message, result, errors} envelope. One envelope type per payload type is
// derived at compile time via generics.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dcwiz/appkit/apierror"
)

// Envelope is the uniform reply wrapper. Result is omitted when absent and
// Errors when empty, so an empty envelope marshals to {"message":""}.
type Envelope[T any] struct {
	Message string          `json:"message"`
	Result  *T              `json:"result,omitempty"`
	Errors  []apierror.Item `json:"errors,omitempty"`
}

// New builds an envelope carrying a result.
func New[T any](message string, result T) Envelope[T] {
	return Envelope[T]{Message: message, Result: &result}
}

// Empty is the envelope of handlers that declare no result.
type Empty = Envelope[struct{}]

// OK sends a 200 envelope with a result.
func OK[T any](c echo.Context, message string, result T) error {
	return c.JSON(http.StatusOK, New(message, result))
}

// List sends a 200 envelope whose result is a slice. A nil slice renders
// as an empty JSON array, not null.
func List[T any](c echo.Context, message string, results []T) error {
	if results == nil {
		results = []T{}
	}
	return OK(c, message, results)
}

// NoResult sends a 200 envelope without a result field.
func NoResult(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, Empty{Message: message})
}

// HandlerFunc is a handler returning a typed result instead of writing the
// response itself.
type HandlerFunc[T any] func(c echo.Context) (T, error)

// Wrap adapts a typed handler into an echo.HandlerFunc that envelopes its
// return value. The message is static per route. Errors pass through to the
// error handler untouched.
func Wrap[T any](message string, h HandlerFunc[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := h(c)
		if err != nil {
			return err
		}
		// Handlers that stream or write raw bodies commit the response
		// themselves; enveloping does not apply.
		if c.Response().Committed {
			return nil
		}
		return OK(c, message, result)
	}
}

// WrapEmpty adapts a handler with no result type.
func WrapEmpty(message string, h func(c echo.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h(c); err != nil {
			return err
		}
		if c.Response().Committed {
			return nil
		}
		return NoResult(c, message)
	}
}
