// Package fetch retrieves tile bytes from a source locator. Locators are URLs
// (http, https, ftp, ftps, sftp, file) or bare filesystem paths; a Router
// picks the protocol fetcher by scheme.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ProbeResult holds metadata discovered during the Probe phase.
type ProbeResult struct {
	// Name is the base name of the remote object.
	Name string
	// ContentLength is the size in bytes. -1 means unknown.
	ContentLength int64
}

// Fetcher transfers one remote object.
//
// Lifecycle:
//  1. Create via a Factory or Router.NewFetcher
//  2. Call Probe (required before Fetch)
//  3. Call Fetch to stream the object into a writer
//  4. Call Close
type Fetcher interface {
	// Probe fetches metadata without transferring content.
	Probe(ctx context.Context) (ProbeResult, error)

	// Fetch copies the object into w and returns the number of bytes written.
	// handlers may be nil.
	Fetch(ctx context.Context, w io.Writer, handlers *Handlers) (int64, error)

	// Close releases resources held by the fetcher.
	Close() error
}

// Factory creates a Fetcher for a locator.
type Factory func(locator string, opts *Options) (Fetcher, error)

// FetchError is a structured error from a protocol fetcher.
// Use errors.As to extract it.
type FetchError struct {
	// Protocol identifies the protocol that produced the error (e.g., "http", "sftp").
	Protocol string
	// Op is the operation that failed (e.g., "probe:connect", "fetch:copy").
	Op string
	// Cause is the underlying error.
	Cause     error
	transient bool
}

// Error formats as "protocol op: cause".
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s", e.Protocol, e.Op, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s", e.Protocol, e.Op)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether the failure may succeed on a later attempt.
// The stream core never retries; the flag is informational for callers.
func (e *FetchError) IsTransient() bool {
	return e.transient
}

// NewTransientError creates a FetchError that may succeed later.
func NewTransientError(protocol, op string, cause error) *FetchError {
	return &FetchError{Protocol: protocol, Op: op, Cause: cause, transient: true}
}

// NewPermanentError creates a FetchError that will not succeed on retry.
func NewPermanentError(protocol, op string, cause error) *FetchError {
	return &FetchError{Protocol: protocol, Op: op, Cause: cause}
}

var (
	// ErrProbeRequired is returned when Fetch is called before Probe.
	ErrProbeRequired = errors.New("Probe must be called before Fetch")
	// ErrUnsupportedScheme is returned for locators with an unregistered scheme.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	// ErrTooLarge is returned when an object exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("object exceeds size limit")
	// ErrUnexpectedStatus wraps non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
)
