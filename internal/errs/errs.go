// Package errs holds the error kinds shared by the message pipeline.
//
// Packages wrap one of the sentinels below with fmt.Errorf("...: %w", ...)
// so callers can classify a failure with errors.Is or Kind.
package errs

import "errors"

var (
	// ErrConfiguration is returned when fixed parameters (KDF cost, limits)
	// are internally invalid. It is only expected at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthenticationFailure is returned when a box fails to open or a
	// credential does not match.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrMalformedInput is returned for truncated ciphertext, oversized
	// frames and structurally invalid hashes or envelopes.
	ErrMalformedInput = errors.New("malformed input")

	// ErrTransport is returned for connection, read and write failures.
	ErrTransport = errors.New("transport error")

	// ErrEncoding is returned when bytes do not (de)serialize, including
	// plaintext that is not valid UTF-8.
	ErrEncoding = errors.New("encoding error")
)

var kinds = []error{
	ErrConfiguration,
	ErrAuthenticationFailure,
	ErrMalformedInput,
	ErrTransport,
	ErrEncoding,
}

// Kind returns the sentinel err wraps, or nil if it wraps none of them.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
