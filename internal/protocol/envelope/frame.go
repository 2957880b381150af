package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"quietdrop/internal/errs"
)

const (
	headerSize = 4

	// MaxFrameSize bounds a single envelope on the wire.
	MaxFrameSize = 1 << 20
)

// WriteFrame writes a 4-byte big-endian length followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 || len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes: %w", len(payload), errs.ErrMalformedInput)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %v: %w", err, errs.ErrTransport)
	}
	return nil
}

// ReadFrame reads one frame. It returns io.EOF unwrapped when the peer
// closed before sending any byte, so callers can treat that as a
// graceful close.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	n, err := io.ReadFull(r, hdr[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("truncated frame header: %w", errs.ErrMalformedInput)
	case err != nil:
		return nil, fmt.Errorf("read frame header: %v: %w", err, errs.ErrTransport)
	}

	size := binary.BigEndian.Uint32(hdr[:])
	if size == 0 || size > MaxFrameSize {
		return nil, fmt.Errorf("frame length %d: %w", size, errs.ErrMalformedInput)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated frame body: %w", errs.ErrMalformedInput)
		}
		return nil, fmt.Errorf("read frame body: %v: %w", err, errs.ErrTransport)
	}
	return payload, nil
}
