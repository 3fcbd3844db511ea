package adapter

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Adapter is the remote transport abstraction. One call sends a
// system/user prompt pair and returns the raw model output. The
// timeout bounds the response wait of this single attempt; connection
// establishment is bounded separately by the dialer (NewHTTPClient).
type Adapter interface {
	// Complete sends a prompt to the model and returns the raw response text.
	Complete(ctx context.Context, model, system, user string, timeout time.Duration) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Info holds metadata about an adapter.
type Info struct {
	Name   string
	Models []string
}

// NewHTTPClient builds the shared HTTP client whose dialer enforces the
// fixed connection-establishment timeout, independent of workload size.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: 0, // response wait is bounded per request
		},
	}
}
