package apierror

import (
	"net/http"
	"strings"
)

// BatchError is the group failure of a fan-out batch. It is raised once
// every sub-request has settled and carries each failure individually.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return "Multiple Errors"
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *BatchError) Unwrap() []error { return e.Errors }

// render combines every sub-failure's items into one body. Each item is
// prefixed with its failure's own summary message for traceability. Exactly
// one failure renders with that failure's status, otherwise 500.
func (e *BatchError) render() Rendered {
	status := http.StatusInternalServerError
	if len(e.Errors) == 1 {
		status = Render(e.Errors[0]).Status
	}

	var items []Item
	for _, sub := range e.Errors {
		r := Render(sub)
		summary := strings.TrimRight(r.Body.Message, ".!")
		if len(r.Body.Errors) == 0 {
			items = append(items, Item{
				Type:     "Unknown",
				Severity: SeverityError,
				Message:  r.Body.Message,
			})
			continue
		}
		for _, item := range r.Body.Errors {
			item.Message = summary + ": " + messageString(item.Message)
			items = append(items, item)
		}
	}

	body := Body{Message: "Multiple Errors", Errors: items}
	if len(e.Errors) == 1 {
		r := Render(e.Errors[0])
		body.Message = r.Body.Message
		body.Code = r.Body.Code
	}
	return Rendered{Status: status, Body: body}
}

type renderable interface {
	render() Rendered
}

// Render maps any error to its HTTP status and JSON body. Errors outside
// the taxonomy become a 500 ServiceError body. Render never fails.
func Render(err error) Rendered {
	if r, ok := err.(renderable); ok {
		return r.render()
	}
	return Rendered{
		Status: http.StatusInternalServerError,
		Body: Body{
			Message: "Internal Service Error",
			Code:    CodeInternalError,
			Errors: []Item{
				{Type: "Unknown", Severity: SeverityError, Message: err.Error()},
			},
		},
	}
}
