package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const sessionFormatVersionCurrent = 1

func writeString8(buf *bytes.Buffer, field, value string) error {
	if len(value) > math.MaxUint8 {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func writeString16(buf *bytes.Buffer, field, value string) error {
	if len(value) > math.MaxUint16 {
		return errors.New(field + " too long")
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(value)))
	buf.Write(l[:])
	buf.WriteString(value)
	return nil
}

func readString8(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func readString16(reader *bytes.Reader) (string, error) {
	var l [2]byte
	if _, err := io.ReadFull(reader, l[:]); err != nil {
		return "", err
	}
	raw := make([]byte, binary.BigEndian.Uint16(l[:]))
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

// Encode serializes a [Session] into the versioned binary blob stored in
// Redis. Token is excluded; it addresses the blob.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if err := writeString8(&buf, "userID", s.UserID); err != nil {
		return nil, err
	}
	if err := writeString8(&buf, "ip", s.IP); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, "userAgent", s.UserAgent); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, "origin", s.Origin); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses an encoded session blob. The caller sets Token.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	if s.UserID, err = readString8(reader); err != nil {
		return nil, err
	}
	if s.IP, err = readString8(reader); err != nil {
		return nil, err
	}
	if s.UserAgent, err = readString16(reader); err != nil {
		return nil, err
	}
	if s.Origin, err = readString16(reader); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
