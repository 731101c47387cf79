// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies a failed feed round trip.
type Reason string

const (
	ReasonUpstream  Reason = "UpstreamError"
	ReasonEmptyBody Reason = "EmptyBody"
	ReasonParse     Reason = "ParseError"
	ReasonTimeout   Reason = "Timeout"
	ReasonNetwork   Reason = "NetworkError"

	// ReasonInvalidRequest marks a request rejected before it was sent.
	// Retrying it cannot succeed.
	ReasonInvalidRequest Reason = "InvalidRequest"
)

// FetchError is returned by a Gateway when a page could not be fetched.
type FetchError struct {
	Reason Reason

	// Status is the HTTP status for ReasonUpstream, zero otherwise.
	Status int

	Err error
}

func (e *FetchError) Error() string {
	msg := string(e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// ReasonOf classifies err. Errors that are not a *FetchError are treated as
// timeouts when a deadline expired and as network failures otherwise.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if isTimeout(err) {
		return ReasonTimeout
	}
	return ReasonNetwork
}

func invalidRequest(format string, args ...any) *FetchError {
	return &FetchError{Reason: ReasonInvalidRequest, Err: fmt.Errorf(format, args...)}
}

// transportError wraps an error from the HTTP round trip itself.
func transportError(err error) *FetchError {
	if isTimeout(err) {
		return &FetchError{Reason: ReasonTimeout, Err: err}
	}
	return &FetchError{Reason: ReasonNetwork, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
