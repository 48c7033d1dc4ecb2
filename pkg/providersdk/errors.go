package providersdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnreachable = errors.New("providersdk: provider unreachable")
	ErrRejected    = errors.New("providersdk: provider rejected request")
	ErrUpstream    = errors.New("providersdk: provider error")
)

// Kind classifies a provider failure.
type Kind int

const (
	KindUnreachable Kind = iota + 1
	KindRejected
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindRejected:
		return "rejected"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call.
type Error struct {
	Op     string // exchange, profile, reissue, public_key
	Kind   Kind
	Status int    // HTTP status, zero when unreachable
	Reason string // provider supplied message, if any
	Body   []byte // raw response body for KindUpstream
	Err    error  // transport cause for KindUnreachable
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return fmt.Sprintf("providersdk: %s: unreachable: %v", e.Op, e.Err)
	case KindRejected:
		return fmt.Sprintf("providersdk: %s: rejected: %s", e.Op, e.Reason)
	default:
		return fmt.Sprintf("providersdk: %s: HTTP %d: %s", e.Op, e.Status, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

func unreachable(op string, err error) *Error {
	return &Error{Op: op, Kind: KindUnreachable, Err: err}
}

// ErrorResponse is the provider's error envelope. The token endpoint uses the
// OAuth2 shape, everything else the status/mensaje shape.
type ErrorResponse struct {
	Status           string `json:"status"`
	Mensaje          string `json:"mensaje"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (r ErrorResponse) reason() string {
	switch {
	case r.Mensaje != "":
		return r.Mensaje
	case r.ErrorDescription != "":
		return r.ErrorDescription
	default:
		return r.Error
	}
}

// parseErrorResponse classifies a non-2xx response. A 4xx that carries an
// error envelope is a rejection, anything else is an upstream error.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(op string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	_ = json.Unmarshal(body, &errResp)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && errResp.reason() != "" {
		return &Error{
			Op:     op,
			Kind:   KindRejected,
			Status: resp.StatusCode,
			Reason: errResp.reason(),
		}
	}

	reason := errResp.reason()
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &Error{
		Op:     op,
		Kind:   KindUpstream,
		Status: resp.StatusCode,
		Reason: reason,
		Body:   body,
	}
}
