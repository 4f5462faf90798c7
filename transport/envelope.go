package transport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/keyframeio/rollback/frameinput"
)

// Envelope framing uses protowire directly (the low-level varint/length-
// delimited encoder underlying every generated proto.Message) rather than
// a generated struct, since the payload type T is a Go generic and cannot
// be given a .proto schema at this layer. This keeps the wire format real
// protobuf encoding, grounded on the pack's broader use of
// google.golang.org/protobuf (EchoTools-nevrcap's codec packages), while
// staying generic over T via Codec[T] for the payload bytes.
const (
	fieldType       = protowire.Number(1)
	fieldFrame      = protowire.Number(2)
	fieldHasFrame   = protowire.Number(3)
	fieldHasPayload = protowire.Number(4)
	fieldPayload    = protowire.Number(5)
)

// EncodeEnvelope serializes msg to its wire form.
func EncodeEnvelope[T comparable](msg NetworkMessage[T], codec Codec[T]) ([]byte, error) {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(msg.Type))

	buf = protowire.AppendTag(buf, fieldFrame, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(msg.Input.Frame.Frame))

	buf = protowire.AppendTag(buf, fieldHasFrame, protowire.VarintType)
	buf = protowire.AppendVarint(buf, boolToVarint(msg.Input.Frame.Ok))

	buf = protowire.AppendTag(buf, fieldHasPayload, protowire.VarintType)
	buf = protowire.AppendVarint(buf, boolToVarint(msg.Input.HasPayload))

	if msg.Input.HasPayload {
		payload, err := codec.EncodePayload(msg.Input.Payload)
		if err != nil {
			return nil, fmt.Errorf("transport: encode payload: %w", err)
		}
		buf = protowire.AppendTag(buf, fieldPayload, protowire.BytesType)
		buf = protowire.AppendBytes(buf, payload)
	}

	return buf, nil
}

// DecodeEnvelope parses a wire-form message back into a NetworkMessage.
func DecodeEnvelope[T comparable](data []byte, codec Codec[T]) (NetworkMessage[T], error) {
	var (
		msg        NetworkMessage[T]
		frame      uint32
		hasFrame   bool
		hasPayload bool
		payload    []byte
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return NetworkMessage[T]{}, fmt.Errorf("transport: malformed envelope tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed type field")
			}
			msg.Type = MessageType(v)
			data = data[n:]
		case fieldFrame:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed frame field")
			}
			frame = uint32(v)
			data = data[n:]
		case fieldHasFrame:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed has-frame field")
			}
			hasFrame = v != 0
			data = data[n:]
		case fieldHasPayload:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed has-payload field")
			}
			hasPayload = v != 0
			data = data[n:]
		case fieldPayload:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed payload field")
			}
			payload = v
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return NetworkMessage[T]{}, fmt.Errorf("transport: malformed unknown field")
			}
			data = data[n:]
		}
	}

	if hasFrame {
		msg.Input.Frame = frameinput.Of(frame)
	}
	msg.Input.HasPayload = hasPayload
	if hasPayload {
		v, err := codec.DecodePayload(payload)
		if err != nil {
			return NetworkMessage[T]{}, fmt.Errorf("transport: decode payload: %w", err)
		}
		msg.Input.Payload = v
	}

	return msg, nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
