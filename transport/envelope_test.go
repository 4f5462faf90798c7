package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keyframeio/rollback/frameinput"
	"github.com/keyframeio/rollback/transport"
)

type input struct {
	Buttons uint16
}

func TestEnvelopeRoundTrip(t *testing.T) {
	codec := transport.GobCodec[input]{}
	msg := transport.MakeInput(frameinput.New(42, input{Buttons: 0b1010}))

	data, err := transport.EncodeEnvelope(msg, codec)
	require.NoError(t, err)

	got, err := transport.DecodeEnvelope[input](data, codec)
	require.NoError(t, err)

	require.Equal(t, transport.MsgInput, got.Type)
	require.True(t, got.Input.Frame.Ok)
	require.Equal(t, uint32(42), got.Input.Frame.Frame)
	require.True(t, got.Input.HasPayload)
	require.Equal(t, uint16(0b1010), got.Input.Payload.Buttons)
}

func TestEnvelopeRoundTripNoPayload(t *testing.T) {
	codec := transport.GobCodec[input]{}
	msg := transport.MakeInput(frameinput.Empty[input](7))

	data, err := transport.EncodeEnvelope(msg, codec)
	require.NoError(t, err)

	got, err := transport.DecodeEnvelope[input](data, codec)
	require.NoError(t, err)
	require.False(t, got.Input.HasPayload)
	require.Equal(t, uint32(7), got.Input.Frame.Frame)
}
