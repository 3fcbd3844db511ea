package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Classification tags a transport failure for retry decisions.
type Classification string

const (
	ClassAuthError      Classification = "auth_error"
	ClassConnectTimeout Classification = "connect_timeout"
	ClassReadTimeout    Classification = "read_timeout"
	ClassTimeout        Classification = "timeout"
	ClassConnectError   Classification = "connect_error"
	ClassOtherError     Classification = "other_error"
)

// Error wraps provider failures with status metadata at the SDK boundary,
// so classification never depends on top-level message wording.
type Error struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify derives a Classification from an error's underlying cause
// chain. The order matters: auth rejection wins over everything, then
// timeouts split by phase, then connection failures.
func Classify(err error) Classification {
	if err == nil {
		return ClassOtherError
	}

	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		if adapterErr.Status == 401 || adapterErr.Status == 403 {
			return ClassAuthError
		}
	}

	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if timedOut {
		switch connectionPhase(err) {
		case phaseDial:
			return ClassConnectTimeout
		case phaseResponse:
			return ClassReadTimeout
		default:
			return ClassTimeout
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ClassConnectError
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassConnectError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ClassConnectError
	}

	if adapterErr != nil && adapterErr.Temporary {
		return ClassTimeout
	}

	return ClassOtherError
}

type phase int

const (
	phaseUnknown phase = iota
	phaseDial
	phaseResponse
)

// connectionPhase inspects the cause chain to decide whether a timeout
// struck during connection establishment or while awaiting the response.
func connectionPhase(err error) phase {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return phaseDial
		}
		return phaseResponse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return phaseResponse
	}
	return phaseUnknown
}
