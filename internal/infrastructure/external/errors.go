package external

import (
	"errors"
	"fmt"
	"net/http"

	"security-console/internal/domain"
)

type FetchErrorKind string

const (
	KindAuthRejected      FetchErrorKind = "auth_rejected"
	KindUnreachable       FetchErrorKind = "unreachable"
	KindMalformedResponse FetchErrorKind = "malformed_response"
	KindRemoteError       FetchErrorKind = "remote_error"
)

// FetchError classifies a failed call to an external system.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets callers outside this package match any FetchError as
// domain.ErrUpstream.
func (e *FetchError) Is(target error) bool { return target == domain.ErrUpstream }

// KindOf returns the kind of a FetchError anywhere in err's chain.
func KindOf(err error) (FetchErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

func malformed(format string, args ...any) *FetchError {
	return &FetchError{Kind: KindMalformedResponse, Err: fmt.Errorf(format, args...)}
}

// classifyStatus maps a non-2xx response to a FetchError.
func classifyStatus(resp *http.Response, snippet string) *FetchError {
	kind := KindRemoteError
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindAuthRejected
	}
	msg := resp.Status
	if snippet != "" {
		msg += ": " + snippet
	}
	return &FetchError{Kind: kind, StatusCode: resp.StatusCode, Err: errors.New(msg)}
}

// classifyTransport wraps an error returned by http.Client.Do. Anything that
// kept the request from producing a response counts as unreachable, timeouts
// included.
func classifyTransport(err error) *FetchError {
	return &FetchError{Kind: KindUnreachable, Err: err}
}
