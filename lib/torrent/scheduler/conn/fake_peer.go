package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/torrent/bitfield"
)

// FakePeer is an in-process seeder for testing downloads. It speaks just
// enough of the wire protocol to serve pieces of a known blob: handshake
// echo, optional bitfield, an immediate unchoke, and request / piece.
type FakePeer struct {
	mi      *core.MetaInfo
	content []byte

	owned        *bitfield.Bitfield
	sendBitfield bool
	// maxBlocks closes every connection after serving that many blocks.
	// Zero means unlimited.
	maxBlocks int

	peerID core.PeerID
	ln     net.Listener

	mu     sync.Mutex
	closed bool
}

// FakePeerOption overrides a FakePeer default.
type FakePeerOption func(*FakePeer)

// WithOwnedPieces restricts the pieces the peer advertises and serves.
func WithOwnedPieces(indices ...int) FakePeerOption {
	return func(p *FakePeer) {
		p.owned = bitfield.New(uint(p.mi.Info.NumPieces()))
		for _, i := range indices {
			p.owned.Set(uint(i))
		}
	}
}

// WithoutBitfield suppresses the post-handshake bitfield frame.
func WithoutBitfield() FakePeerOption {
	return func(p *FakePeer) { p.sendBitfield = false }
}

// WithMaxBlocks makes the peer flaky: every connection is severed after
// serving n blocks.
func WithMaxBlocks(n int) FakePeerOption {
	return func(p *FakePeer) { p.maxBlocks = n }
}

// NewFakePeer starts a FakePeer seeding content as described by mi.
func NewFakePeer(mi *core.MetaInfo, content []byte, opts ...FakePeerOption) (*FakePeer, error) {
	peerID, err := core.RandomPeerID()
	if err != nil {
		return nil, err
	}
	p := &FakePeer{
		mi:           mi,
		content:      content,
		sendBitfield: true,
		peerID:       peerID,
	}
	p.owned = bitfield.New(uint(mi.Info.NumPieces()))
	for i := 0; i < mi.Info.NumPieces(); i++ {
		p.owned.Set(uint(i))
	}
	for _, opt := range opts {
		opt(p)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %s", err)
	}
	p.ln = ln
	go p.serve()
	return p, nil
}

// Addr returns the address peers dial.
func (p *FakePeer) Addr() core.PeerInfo {
	addr := p.ln.Addr().(*net.TCPAddr)
	return core.PeerInfo{IP: addr.IP, Port: addr.Port}
}

// Close stops the listener and refuses further connections.
func (p *FakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.ln.Close()
}

func (p *FakePeer) serve() {
	for {
		nc, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.handle(nc)
	}
}

func (p *FakePeer) handle(nc net.Conn) {
	defer nc.Close()

	if _, err := ParseHandshake(nc); err != nil {
		return
	}
	reply := &Handshake{InfoHash: p.mi.InfoHash(), PeerID: p.peerID}
	if _, err := nc.Write(reply.Serialize()); err != nil {
		return
	}
	if p.sendBitfield {
		if err := p.send(nc, NewBitfield(p.owned.ToWire())); err != nil {
			return
		}
	}
	if err := p.send(nc, NewUnchoke()); err != nil {
		return
	}

	var served int
	for {
		msg, err := ReadMessage(nc)
		if err != nil {
			return
		}
		if msg == nil || msg.ID != MsgRequest {
			continue
		}
		index, begin, length, err := ParseRequest(msg)
		if err != nil {
			return
		}
		if !p.owned.Has(uint(index)) {
			continue
		}
		block, err := p.block(index, begin, length)
		if err != nil {
			return
		}
		if err := p.send(nc, NewPiece(index, begin, block)); err != nil {
			return
		}
		served++
		if p.maxBlocks > 0 && served >= p.maxBlocks {
			return
		}
	}
}

func (p *FakePeer) block(index, begin, length uint32) ([]byte, error) {
	start := int64(index)*p.mi.Info.PieceLength + int64(begin)
	end := start + int64(length)
	if start < 0 || end > int64(len(p.content)) {
		return nil, errors.New("block out of bounds")
	}
	return p.content[start:end], nil
}

func (p *FakePeer) send(w io.Writer, msg *Message) error {
	_, err := w.Write(msg.Serialize())
	return err
}
