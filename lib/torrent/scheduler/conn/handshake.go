package conn

import (
	"fmt"
	"io"

	"github.com/remora-dl/remora/core"
)

// Protocol is the protocol identifier exchanged in every handshake.
const Protocol = "BitTorrent protocol"

// HandshakeSize is the fixed serialized size of a handshake.
const HandshakeSize = 49 + len(Protocol)

// Handshake identifies a peer and the torrent it wants to transfer.
type Handshake struct {
	InfoHash core.InfoHash
	PeerID   core.PeerID
}

// Serialize writes h into its fixed 68-byte wire form: a length byte, the
// protocol string, eight reserved bytes, the info hash, and the peer id.
func (h *Handshake) Serialize() []byte {
	buf := make([]byte, HandshakeSize)
	buf[0] = byte(len(Protocol))
	n := 1
	n += copy(buf[n:], Protocol)
	n += 8 // Reserved bytes, all zero.
	n += copy(buf[n:], h.InfoHash.Bytes())
	copy(buf[n:], h.PeerID.Bytes())
	return buf
}

// ParseHandshake reads exactly one handshake off r.
func ParseHandshake(r io.Reader) (*Handshake, error) {
	buf := make([]byte, HandshakeSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	if int(buf[0]) != len(Protocol) {
		return nil, core.ErrBadHandshake
	}
	if string(buf[1:1+len(Protocol)]) != Protocol {
		return nil, core.ErrBadHandshake
	}
	var h Handshake
	offset := 1 + len(Protocol) + 8
	copy(h.InfoHash[:], buf[offset:offset+20])
	copy(h.PeerID[:], buf[offset+20:])
	return &h, nil
}
