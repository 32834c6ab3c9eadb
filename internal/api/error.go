package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Kind is the closed set of failure classes a call can surface. Callers
// branch on Kind, never on raw status codes or error strings.
type Kind string

const (
	KindAuth        Kind = "AUTH"
	KindForbidden   Kind = "FORBIDDEN"
	KindNotFound    Kind = "NOT_FOUND"
	KindRateLimited Kind = "RATE_LIMITED"
	KindValidation  Kind = "VALIDATION"
	KindNetwork     Kind = "NETWORK"
	KindTimeout     Kind = "TIMEOUT"
	KindServer      Kind = "SERVER"
)

// Seconds a caller should wait after a 429 when the server does not say.
const defaultRetryAfterSeconds = 30

type Error struct {
	Kind              Kind
	HTTPStatus        int
	Message           string
	Details           map[string]string
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("api: %s (%d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

// Transient reports whether the caller may reasonably retry the same call.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimited:
		return true
	}
	return false
}

// AsError unwraps err into the taxonomy, if it came from this layer.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NetworkError marks a transport failure where no response reached us.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error()}
}

// TimeoutError marks a call cancelled by the client-side deadline.
func TimeoutError() *Error {
	return &Error{Kind: KindTimeout, Message: "request deadline exceeded"}
}

// ValidationError marks a request rejected locally, before any network call.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func AuthError(message string) *Error {
	return &Error{Kind: KindAuth, HTTPStatus: http.StatusUnauthorized, Message: message}
}

// Classify maps a non-2xx response onto the taxonomy.
//
// Message precedence: explicit "error"/"detail"/"message" fields win over a
// bare field-validation object; a bare object becomes Details with the status
// text as message.
func Classify(status int, header http.Header, body []byte) *Error {
	message, details := parseBody(body)
	if message == "" {
		message = http.StatusText(status)
	}

	e := &Error{
		HTTPStatus: status,
		Message:    message,
		Details:    details,
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfterSeconds = retryAfter(header)
	case status >= 400 && status < 500:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}

	return e
}

func parseBody(body []byte) (string, map[string]string) {
	if len(body) == 0 {
		return "", nil
	}

	var structured struct {
		Error   string            `json:"error"`
		Detail  string            `json:"detail"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		switch {
		case structured.Error != "":
			return structured.Error, structured.Fields
		case structured.Detail != "":
			return structured.Detail, structured.Fields
		case structured.Message != "":
			return structured.Message, structured.Fields
		case structured.Fields != nil:
			return "", structured.Fields
		}
	}

	// Some endpoints answer with a bare {"field": "problem"} object.
	var bare map[string]string
	if err := json.Unmarshal(body, &bare); err == nil && len(bare) > 0 {
		return "", bare
	}

	return "", nil
}

func retryAfter(header http.Header) int {
	raw := header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfterSeconds
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return defaultRetryAfterSeconds
	}
	return secs
}
