package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomPeerIDFormat(t *testing.T) {
	require := require.New(t)

	p, err := RandomPeerID()
	require.NoError(err)
	require.Len(p.Bytes(), 20)
	require.True(strings.HasPrefix(p.String(), PeerIDPrefix))
	for _, c := range p.String()[len(PeerIDPrefix):] {
		require.Contains(peerIDAlphabet, string(c))
	}
}

func TestRandomPeerIDFresh(t *testing.T) {
	require := require.New(t)

	a, err := RandomPeerID()
	require.NoError(err)
	b, err := RandomPeerID()
	require.NoError(err)
	require.NotEqual(a, b)
}

func TestNewPeerID(t *testing.T) {
	require := require.New(t)

	p, err := NewPeerID("12345678901234567890")
	require.NoError(err)
	require.Equal("12345678901234567890", p.String())

	_, err = NewPeerID("too short")
	require.Equal(ErrInvalidPeerIDLength, err)
}
