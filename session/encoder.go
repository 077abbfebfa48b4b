package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const sessionFormatVersionCurrent = 1

// ErrCorrupt is returned when a stored session cannot be decoded.
var ErrCorrupt = errors.New("session corrupt")

// Encode serializes everything but the session id, which is the Redis key.
func Encode(s *Session) ([]byte, error) {
	if !s.State.valid() {
		return nil, fmt.Errorf("invalid session state %s", s.State.kind)
	}
	if len(s.State.userID) > 255 {
		return nil, errors.New("userID too long")
	}
	if len(s.CSRFToken) > 255 {
		return nil, errors.New("csrf token too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + 2 + len(s.State.userID) + len(s.CSRFToken) + 16)

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(s.State.kind))

	buf.WriteByte(byte(len(s.State.userID)))
	buf.WriteString(s.State.userID)

	buf.WriteByte(byte(len(s.CSRFToken)))
	buf.WriteString(s.CSRFToken)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by [Encode]. Failures wrap [ErrCorrupt].
func Decode(data []byte) (*Session, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	s := &Session{}

	userID, err := readString(reader)
	if err != nil {
		return nil, err
	}
	s.State = State{kind: Kind(kind), userID: userID}
	if !s.State.valid() {
		return nil, errors.New("inconsistent session state")
	}

	if s.CSRFToken, err = readString(reader); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return s, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
