package transport

import (
	"bytes"
	"encoding/gob"
)

// Codec encodes and decodes a payload type T to and from bytes for the
// wire. Keeping this as a small pluggable interface (rather than forcing
// every T to satisfy proto.Message) lets a host swap in protobuf-generated
// payload types without touching the envelope framing in envelope.go,
// grounded on EchoTools-nevrcap's codec packages (pkg/codecs/*), which
// separate "how a record is framed on the wire" from "how a record is
// serialized".
type Codec[T any] interface {
	EncodePayload(v T) ([]byte, error)
	DecodePayload(data []byte) (T, error)
}

// GobCodec is the default Codec: adequate for the fixed-width bitmask or
// small-struct payloads typical of a fighting-game input, and requires no
// schema authoring from the embedding host.
type GobCodec[T any] struct{}

func (GobCodec[T]) EncodePayload(v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) DecodePayload(data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
