package restclient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVerb is matched by *InvalidVerbError.
	ErrInvalidVerb = errors.New("invalid HTTP verb")

	// ErrTransport is matched by *TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrEncoding is matched by *EncodingError.
	ErrEncoding = errors.New("body encoding failure")

	// ErrMissingURI is returned by SendRequest when no target URI was set.
	ErrMissingURI = errors.New("restclient: no URI set")
)

// InvalidVerbError is recorded when a method outside GET, DELETE, POST and PUT
// is passed to a builder configured for strict verb validation.
type InvalidVerbError struct {
	Verb string
}

func (e *InvalidVerbError) Error() string {
	return fmt.Sprintf("restclient: invalid HTTP verb (method) %q", e.Verb)
}

// Is reports whether target is ErrInvalidVerb.
func (e *InvalidVerbError) Is(target error) bool {
	return target == ErrInvalidVerb
}

// TransportError means the request could not be sent or no parsable response
// came back. It is never used for HTTP error statuses: a 404 or 500 is a
// Result, not an error.
type TransportError struct {
	// Method and URI identify the hop that failed.
	Method Method
	URI    string

	// Kind is one of the ErrorType* classifications.
	Kind string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("restclient: %s %s: %s: %v", e.Method, e.URI, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// EncodingError means the body could not be serialized for the selected mode.
type EncodingError struct {
	Mode EncodingMode
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("restclient: encode body as %s: %v", e.Mode, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func newTransportError(method Method, uri string, err error) *TransportError {
	return &TransportError{
		Method: method,
		URI:    uri,
		Kind:   classifyError(err),
		Err:    err,
	}
}
