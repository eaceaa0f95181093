package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericErrorMessage is shown when the backend gives no usable message.
const GenericErrorMessage = "Something went wrong. Please try again."

// Kind classifies an error for presentation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindRequest    Kind = "request"
	KindConflict   Kind = "conflict"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// errorBody covers the message fields the backend services use.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	msg := GenericErrorMessage
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		switch {
		case strings.TrimSpace(eb.Message) != "":
			msg = eb.Message
		case strings.TrimSpace(eb.Detail) != "":
			msg = eb.Detail
		case strings.TrimSpace(eb.Error) != "":
			msg = eb.Error
		}
	}
	return &APIError{Method: method, Path: path, Status: status, Message: msg}
}

// kinded is implemented by errors from other layers (form validation,
// conflict detection) that know their own classification.
type kinded interface {
	ErrorKind() Kind
}

// KindOf classifies err. Nil errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusConflict:
			return KindConflict
		case apiErr.Status >= 500:
			return KindServer
		default:
			return KindRequest
		}
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return KindNetwork
	}
	return KindUnknown
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return GenericErrorMessage
	}
	var k kinded
	if errors.As(err, &k) {
		return err.Error()
	}
	return GenericErrorMessage
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
