package conn

import (
	"bytes"
	"testing"

	"github.com/remora-dl/remora/core"

	"github.com/stretchr/testify/require"
)

func TestHandshakeSerializeLayout(t *testing.T) {
	require := require.New(t)

	h := &Handshake{}
	b := h.Serialize()
	require.Len(b, 68)
	require.Equal(byte(0x13), b[0])
	require.Equal("BitTorrent protocol", string(b[1:20]))
	require.Equal(make([]byte, 8), b[20:28])
	require.Equal(make([]byte, 40), b[28:68])
}

func TestHandshakeRoundTrip(t *testing.T) {
	require := require.New(t)

	h := &Handshake{
		InfoHash: core.InfoHashFixture(),
		PeerID:   core.PeerIDFixture(),
	}
	parsed, err := ParseHandshake(bytes.NewReader(h.Serialize()))
	require.NoError(err)
	require.Equal(h, parsed)
}

func TestParseHandshakeRejectsWrongLengthByte(t *testing.T) {
	require := require.New(t)

	h := &Handshake{InfoHash: core.InfoHashFixture()}
	b := h.Serialize()
	b[0] = 18
	_, err := ParseHandshake(bytes.NewReader(b))
	require.Equal(core.ErrBadHandshake, err)
}

func TestParseHandshakeRejectsShortRead(t *testing.T) {
	require := require.New(t)

	h := &Handshake{InfoHash: core.InfoHashFixture()}
	_, err := ParseHandshake(bytes.NewReader(h.Serialize()[:40]))
	require.Error(err)
}

func TestParseHandshakeRejectsWrongProtocol(t *testing.T) {
	require := require.New(t)

	h := &Handshake{InfoHash: core.InfoHashFixture()}
	b := h.Serialize()
	b[1] = 'b'
	_, err := ParseHandshake(bytes.NewReader(b))
	require.Equal(core.ErrBadHandshake, err)
}
