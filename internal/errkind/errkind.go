// Package errkind classifies the error kinds named in the design: each
// kind carries its own recovery policy, and the Pipeline switches on Kind
// rather than inspecting error strings or concrete types from every
// producing package.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the seven recognized error categories.
type Kind string

const (
	// DiffFormat: malformed hunk header or file header. Fatal, aborts the run.
	DiffFormat Kind = "diff_format"
	// Network: DNS failure, connect failure, socket error. Localized to one
	// request; the Pipeline records an empty embedding and continues.
	Network Kind = "network"
	// Tls: TLS handshake error or unrecoverable error mid-stream. Same
	// recovery policy as Network.
	Tls Kind = "tls"
	// Protocol: bad chunk length, missing headers, short body at peer
	// close. Same recovery policy as Network.
	Protocol Kind = "protocol"
	// ModelResponse: response JSON lacks expected fields. Embedding calls
	// fall back to an empty vector; chat calls fall back to "update code".
	ModelResponse Kind = "model_response"
	// Filesystem: patch directory creation or patch file write failed. Fatal.
	Filesystem Kind = "filesystem"
	// Config: missing credentials or malformed configuration. Fatal at
	// startup.
	Config Kind = "config"
)

// Fatal reports whether an error of this kind should abort the whole run
// rather than being localized to the request or sub-hunk that produced it.
func (k Kind) Fatal() bool {
	switch k {
	case DiffFormat, Filesystem, Config:
		return true
	default:
		return false
	}
}

// Error wraps an underlying error with its Kind so callers can recover the
// classification via errors.As without each package inventing its own
// typed-error hierarchy.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind and operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
