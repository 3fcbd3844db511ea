package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "operation timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyAuthError(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := &Error{Status: status, Err: fmt.Errorf("rejected")}
		if got := Classify(err); got != ClassAuthError {
			t.Fatalf("status %d: got %s, want %s", status, got, ClassAuthError)
		}
	}
}

func TestClassifyAuthErrorWrapped(t *testing.T) {
	err := fmt.Errorf("call failed: %w", &Error{Status: 401, Err: fmt.Errorf("bad key")})
	if got := Classify(err); got != ClassAuthError {
		t.Fatalf("got %s, want %s", got, ClassAuthError)
	}
}

func TestClassifyConnectTimeout(t *testing.T) {
	err := fmt.Errorf("request failed: %w", &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded})
	if got := Classify(err); got != ClassConnectTimeout {
		t.Fatalf("got %s, want %s", got, ClassConnectTimeout)
	}
}

func TestClassifyReadTimeout(t *testing.T) {
	err := fmt.Errorf("request failed: %w", &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded})
	if got := Classify(err); got != ClassReadTimeout {
		t.Fatalf("got %s, want %s", got, ClassReadTimeout)
	}
}

func TestClassifyContextDeadlineAsReadTimeout(t *testing.T) {
	// A per-request deadline fires while awaiting the response.
	err := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
	if got := Classify(err); got != ClassReadTimeout {
		t.Fatalf("got %s, want %s", got, ClassReadTimeout)
	}
}

func TestClassifyGenericTimeout(t *testing.T) {
	err := fmt.Errorf("request failed: %w", timeoutErr{})
	if got := Classify(err); got != ClassTimeout {
		t.Fatalf("got %s, want %s", got, ClassTimeout)
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	err := fmt.Errorf("request failed: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})
	if got := Classify(err); got != ClassConnectError {
		t.Fatalf("got %s, want %s", got, ClassConnectError)
	}
}

func TestClassifyDNSFailure(t *testing.T) {
	err := fmt.Errorf("request failed: %w", &net.DNSError{Err: "no such host", Name: "api.example.invalid", IsNotFound: true})
	if got := Classify(err); got != ClassConnectError {
		t.Fatalf("got %s, want %s", got, ClassConnectError)
	}
}

func TestClassifyOther(t *testing.T) {
	if got := Classify(errors.New("malformed payload")); got != ClassOtherError {
		t.Fatalf("got %s, want %s", got, ClassOtherError)
	}
	if got := Classify(nil); got != ClassOtherError {
		t.Fatalf("nil: got %s, want %s", got, ClassOtherError)
	}
}

func TestClassifyServerStatusNotAuth(t *testing.T) {
	err := &Error{Status: 500, Err: fmt.Errorf("internal error")}
	if got := Classify(err); got == ClassAuthError {
		t.Fatalf("status 500 must not classify as auth error")
	}
}
