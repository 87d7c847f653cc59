// Package codec encodes and decodes the signaling wire envelope.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
)

// ErrMissingType indicates an envelope without the required type field.
var ErrMissingType = errors.New("message type missing")

// Encode serializes a message to its wire form. The protocol version is
// stamped when the caller left it zero.
func Encode(m *typesv1.SignalingMessage) ([]byte, error) {
	if m.Type == "" {
		return nil, ErrMissingType
	}
	out := *m
	if out.V == 0 {
		out.V = typesv1.ProtocolVersion
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses a wire message. Payload numbers are kept as json.Number so
// counts survive without precision loss. Unknown type values are accepted;
// only a missing type is a protocol error.
func Decode(data []byte) (*typesv1.SignalingMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m typesv1.SignalingMessage
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return nil, ErrMissingType
	}
	return &m, nil
}

// Equal reports structural equality of two envelopes. Payloads compare by
// value, tolerant of numeric representation differences across round trips.
func Equal(a, b *typesv1.SignalingMessage) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.V == b.V &&
		a.Type == b.Type &&
		a.RoomID == b.RoomID &&
		a.SessionID == b.SessionID &&
		a.ClientID == b.ClientID &&
		a.To == b.To &&
		typesv1.EqualValue(a.Payload, b.Payload)
}
