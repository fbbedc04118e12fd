// Package apierror defines the error taxonomy shared by DCWiz services:
// a small set of error kinds that carry enough request context to render a
// structured JSON error body, plus the Echo error handler that maps each
// kind to an HTTP response.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Code is the machine-readable error key used for message translation.
type Code string

const (
	CodeAPIError      Code = "ERR_API_ERROR"
	CodeDataError     Code = "ERR_DATA_ERROR"
	CodeInternalError Code = "ERR_INTERNAL_ERROR"
	CodeAuthError     Code = "ERR_AUTH_ERROR"
)

// Severity of a single error item.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityError    Severity = "Error"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
	SeverityDebug    Severity = "Debug"
)

// Item is one entry of an error body. Message is either a plain string or
// a decoded JSON structure.
type Item struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  any      `json:"message"`
}

// messageString renders an item message for prefixing. Structured messages
// are compacted to JSON.
func messageString(m any) string {
	switch v := m.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// Body is the JSON body of every error response.
type Body struct {
	Message string `json:"message"`
	Code    Code   `json:"error_message_key,omitempty"`
	Errors  []Item `json:"errors,omitempty"`
}

// Rendered pairs an HTTP status code with the body to send.
type Rendered struct {
	Status int
	Body   Body
}

// ServiceError is an internally raised error with no upstream call behind
// it. Status defaults to 500 when left zero.
type ServiceError struct {
	Code    Code
	Message string
	Items   []Item
	Status  int
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Internal Service Error"
}

// NewServiceError builds a ServiceError with the internal error code.
func NewServiceError(message string, items ...Item) *ServiceError {
	return &ServiceError{Code: CodeInternalError, Message: message, Items: items}
}

func (e *ServiceError) render() Rendered {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := e.Code
	if code == "" {
		code = CodeInternalError
	}
	return Rendered{
		Status: status,
		Body:   Body{Message: e.Error(), Code: code, Errors: e.Items},
	}
}

// Upstream holds the context of a failed outbound call: the request that
// was made and the raw response that came back.
type Upstream struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	// Message overrides the generated summary when non-empty.
	Message string
}

func (u Upstream) summary() string {
	if u.Message != "" {
		return u.Message
	}
	return fmt.Sprintf("Error %sing %s, get status code %d", u.Method, u.URL, u.StatusCode)
}

// decodeJSON decodes the upstream body, reporting ok=false when it is not
// valid JSON. Rendering falls back to raw text in that case, never fails.
func (u Upstream) decodeJSON() (any, bool) {
	var v any
	if err := json.Unmarshal(u.Body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// APIError wraps a failed upstream call with no structured body expected.
type APIError struct {
	Upstream
}

func (e *APIError) Error() string { return e.summary() }

func (e *APIError) render() Rendered {
	return Rendered{
		Status: e.StatusCode,
		Body: Body{
			Message: e.summary(),
			Code:    CodeInternalError,
			Errors: []Item{
				{Type: "API Error", Severity: SeverityError, Message: string(e.Body)},
			},
		},
	}
}

// PlatformAPIError wraps a failed platform call; the body is decoded as
// JSON when possible and kept as raw text otherwise.
type PlatformAPIError struct {
	Upstream
}

func (e *PlatformAPIError) Error() string { return e.summary() }

func (e *PlatformAPIError) render() Rendered {
	var msg any = string(e.Body)
	if decoded, ok := e.decodeJSON(); ok {
		msg = decoded
	}
	return Rendered{
		Status: e.StatusCode,
		Body: Body{
			Message: e.summary(),
			Code:    CodeDataError,
			Errors: []Item{
				{Type: "API Error", Severity: SeverityError, Message: msg},
			},
		},
	}
}

// DataAPIError wraps a failed data-API call. The body is expected to carry
// a "detail" field: a list of [key, value] pairs becomes one "key:value"
// item each, anything else a single stringified item.
type DataAPIError struct {
	Upstream
}

func (e *DataAPIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Data Error: %s %s: %d", e.Method, e.URL, e.StatusCode)
}

func (e *DataAPIError) render() Rendered {
	var items []Item
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && len(payload.Detail) > 0 {
		items = detailItems(payload.Detail)
	}
	if items == nil {
		items = []Item{
			{Type: "API Error", Severity: SeverityError, Message: string(e.Body)},
		}
	}
	return Rendered{
		Status: e.StatusCode,
		Body:   Body{Message: e.Error(), Code: CodeAPIError, Errors: items},
	}
}

func detailItems(detail json.RawMessage) []Item {
	var pairs [][]any
	if err := json.Unmarshal(detail, &pairs); err == nil {
		items := make([]Item, 0, len(pairs))
		for _, p := range pairs {
			if len(p) != 2 {
				return nil
			}
			items = append(items, Item{
				Type:     "Data Error",
				Severity: SeverityError,
				Message:  fmt.Sprintf("%v:%v", p[0], p[1]),
			})
		}
		return items
	}
	var v any
	if err := json.Unmarshal(detail, &v); err != nil {
		return nil
	}
	return []Item{
		{Type: "Data Error", Severity: SeverityError, Message: messageString(v)},
	}
}

// serviceBody is the structured body DCWiz services return on error.
type serviceBody struct {
	Message string `json:"message"`
	Errors  []Item `json:"errors"`
}

// ServiceAPIError wraps a failed call to another DCWiz service. The body is
// expected to carry "message" and optionally "errors".
type ServiceAPIError struct {
	Upstream
}

func (e *ServiceAPIError) Error() string { return e.summary() }

func (e *ServiceAPIError) render() Rendered {
	body := Body{Message: e.summary(), Code: CodeAPIError}
	var sb serviceBody
	if err := json.Unmarshal(e.Body, &sb); err == nil {
		if e.Message == "" && sb.Message != "" {
			body.Message = sb.Message
		}
		body.Errors = sb.Errors
	} else {
		body.Errors = []Item{
			{Type: "API Error", Severity: SeverityError, Message: string(e.Body)},
		}
	}
	return Rendered{Status: e.StatusCode, Body: body}
}

// AuthError wraps a 401/403 from the auth service. When neither the caller
// nor the body supplies a message, a canned one is used.
type AuthError struct {
	Upstream
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode == http.StatusUnauthorized {
		return "Not Authenticated, please login."
	}
	return "Not Authorized, please use a different account."
}

func (e *AuthError) render() Rendered {
	body := Body{Message: e.Error(), Code: CodeAuthError}
	var sb serviceBody
	if err := json.Unmarshal(e.Body, &sb); err == nil {
		body.Errors = sb.Errors
	}
	return Rendered{Status: e.StatusCode, Body: body}
}
