package core

import (
	"encoding/binary"
	"fmt"
	"net"
)

// compactPeerLen is the length of one record in a compact peer list: 4
// bytes of IPv4 address and 2 bytes of port, both big endian.
const compactPeerLen = 6

// PeerInfo is the address of a peer discovered via the tracker. Peer set
// membership is by address.
type PeerInfo struct {
	IP   net.IP
	Port int
}

// Addr returns the dialable host:port form of p.
func (p PeerInfo) Addr() string {
	return net.JoinHostPort(p.IP.String(), fmt.Sprint(p.Port))
}

func (p PeerInfo) String() string {
	return p.Addr()
}

// UnmarshalCompactPeers decodes the compact 6-byte-per-peer tracker list.
// Records holding an invalid address are dropped without failing the batch.
func UnmarshalCompactPeers(b []byte) ([]PeerInfo, error) {
	if len(b)%compactPeerLen != 0 {
		return nil, ErrMalformedCompactPeers
	}
	peers := make([]PeerInfo, 0, len(b)/compactPeerLen)
	for i := 0; i < len(b); i += compactPeerLen {
		ip := net.IPv4(b[i], b[i+1], b[i+2], b[i+3])
		if ip.IsUnspecified() {
			continue
		}
		port := int(binary.BigEndian.Uint16(b[i+4 : i+6]))
		if port == 0 {
			continue
		}
		peers = append(peers, PeerInfo{IP: ip, Port: port})
	}
	return peers, nil
}
