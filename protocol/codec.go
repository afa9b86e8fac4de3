package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrPayloadTooLarge is returned when a message declares a payload longer
	// than MaxPayload. On the receive side it is returned before any payload
	// bytes are read.
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds maximum size")

	// ErrShortWrite is returned when the underlying connection accepted fewer
	// bytes than a full header or payload.
	ErrShortWrite = errors.New("protocol: short write")
)

// Write encodes m onto w: first the fixed header, then the payload if any.
// The header and payload are written separately on purpose; the peer has to
// decode the length field before it can size the payload read, so collapsing
// the two into one framed write would change the protocol.
func Write(w io.Writer, m Message) error {
	if len(m.Payload) > MaxPayload {
		return ErrPayloadTooLarge
	}

	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(m.Type))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(m.Payload)))

	n, err := w.Write(header[:])
	if err != nil {
		return fmt.Errorf("protocol: write header: %w", err)
	}
	if n != HeaderSize {
		return ErrShortWrite
	}

	if len(m.Payload) == 0 {
		return nil
	}

	n, err = w.Write(m.Payload)
	if err != nil {
		return fmt.Errorf("protocol: write payload: %w", err)
	}
	if n != len(m.Payload) {
		return ErrShortWrite
	}
	return nil
}

// Read decodes one message from r into m. An incomplete header, a declared
// length above MaxPayload, or a truncated payload all fail; the caller is
// expected to treat any failure as a dead connection.
func Read(r io.Reader, m *Message) error {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("protocol: read header: %w", err)
	}

	m.Type = MessageType(binary.BigEndian.Uint32(header[0:4]))
	length := binary.BigEndian.Uint32(header[4:8])

	if length > MaxPayload {
		return ErrPayloadTooLarge
	}
	if length == 0 {
		m.Payload = nil
		return nil
	}

	m.Payload = make([]byte, length)
	if _, err := io.ReadFull(r, m.Payload); err != nil {
		return fmt.Errorf("protocol: read payload: %w", err)
	}
	return nil
}
