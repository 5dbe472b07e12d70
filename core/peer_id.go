package core

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// PeerIDPrefix is the Azureus-style client identifier every generated peer
// id starts with.
const PeerIDPrefix = "-RM0010-"

// peerIDAlphabet is the character set used for the random suffix.
const peerIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidPeerIDLength returns when a string peer id does not contain
// exactly 20 bytes.
var ErrInvalidPeerIDLength = errors.New("peer id has invalid length")

// PeerID represents a fixed size peer id.
type PeerID [20]byte

// NewPeerID parses a PeerID from the given string, which must contain
// exactly 20 bytes.
func NewPeerID(s string) (PeerID, error) {
	if len(s) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], s)
	return p, nil
}

// Bytes returns the byte representation of p.
func (p PeerID) Bytes() []byte {
	return p[:]
}

// String casts p to a string. Note, generated peer ids are printable but
// parsed remote ids may not be.
func (p PeerID) String() string {
	return string(p[:])
}

// RandomPeerID generates a fresh peer id: the client prefix followed by 12
// random alphanumeric characters.
func RandomPeerID() (PeerID, error) {
	var p PeerID
	n := copy(p[:], PeerIDPrefix)
	suffix := p[n:]
	if _, err := rand.Read(suffix); err != nil {
		return PeerID{}, fmt.Errorf("read random bytes: %s", err)
	}
	for i, b := range suffix {
		suffix[i] = peerIDAlphabet[int(b)%len(peerIDAlphabet)]
	}
	return p, nil
}
