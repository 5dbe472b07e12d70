package conn

import (
	"fmt"
	"net"
	"time"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/torrent/bitfield"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Conn manages peer communication over one connection for one torrent. It
// is owned by a single worker; methods are not safe for concurrent use.
type Conn struct {
	peer         core.PeerInfo
	infoHash     core.InfoHash
	localPeerID  core.PeerID
	remotePeerID core.PeerID

	config Config
	clk    clock.Clock
	stats  tally.Scope

	nc     net.Conn
	choked bool
	// bitfield is nil until the peer announces one; an absent bitfield
	// means "unknown, try anyway".
	bitfield *bitfield.Bitfield

	closed *atomic.Bool

	logger *zap.SugaredLogger
}

// Dial opens a connection to peer, performs the handshake exchange for
// infoHash, and waits briefly for the optional bitfield frame.
func Dial(
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	peer core.PeerInfo,
	infoHash core.InfoHash,
	localPeerID core.PeerID,
	logger *zap.SugaredLogger) (*Conn, error) {

	config = config.applyDefaults()
	stats = stats.Tagged(map[string]string{
		"module": "conn",
	})

	nc, err := net.DialTimeout("tcp", peer.Addr(), config.HandshakeTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial peer: %w", err)
	}

	c := &Conn{
		peer:        peer,
		infoHash:    infoHash,
		localPeerID: localPeerID,
		config:      config,
		clk:         clk,
		stats:       stats,
		nc:          nc,
		choked:      true,
		closed:      atomic.NewBool(false),
		logger:      logger.With("peer", peer.Addr()),
	}
	if err := c.handshake(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.receiveBitfield(); err != nil {
		c.Close()
		return nil, err
	}
	// Clear all deadlines set during handshake.
	if err := nc.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("clear deadline: %s", err)
	}
	return c, nil
}

func (c *Conn) handshake() error {
	if err := c.nc.SetDeadline(c.clk.Now().Add(c.config.HandshakeTimeout)); err != nil {
		return fmt.Errorf("set deadline: %s", err)
	}
	hs := &Handshake{InfoHash: c.infoHash, PeerID: c.localPeerID}
	if _, err := c.nc.Write(hs.Serialize()); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	reply, err := ParseHandshake(c.nc)
	if err != nil {
		return err
	}
	if reply.InfoHash != c.infoHash {
		return core.ErrIncorrectHash
	}
	c.remotePeerID = reply.PeerID
	return nil
}

// receiveBitfield attempts one short read for the bitfield frame peers
// conventionally send right after the handshake. Its absence is not an
// error; any other frame read here is processed normally.
func (c *Conn) receiveBitfield() error {
	if err := c.nc.SetReadDeadline(c.clk.Now().Add(c.config.BitfieldTimeout)); err != nil {
		return fmt.Errorf("set deadline: %s", err)
	}
	msg, err := ReadMessage(c.nc)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil
		}
		return fmt.Errorf("read post-handshake frame: %w", err)
	}
	if msg != nil {
		c.handleMessage(msg)
	}
	return nil
}

// PeerID returns the remote peer id reported during the handshake.
func (c *Conn) PeerID() core.PeerID {
	return c.remotePeerID
}

// InfoHash returns the info hash for the torrent being transmitted over
// this connection.
func (c *Conn) InfoHash() core.InfoHash {
	return c.infoHash
}

// Bitfield returns the pieces the peer has advertised so far, or nil if the
// peer never sent a bitfield.
func (c *Conn) Bitfield() *bitfield.Bitfield {
	return c.bitfield
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(peer=%s, hash=%s)", c.peer.Addr(), c.infoHash)
}

// Send writes the given message to the underlying connection.
func (c *Conn) Send(msg *Message) error {
	if _, err := c.nc.Write(msg.Serialize()); err != nil {
		return fmt.Errorf("write %s: %w", msg.ID, err)
	}
	return nil
}

// SendInterested tells the peer we want to download.
func (c *Conn) SendInterested() error {
	return c.Send(NewInterested())
}

// SendUnchoke tells the peer it may request from us. Leeching peers have
// nothing to serve, but announcing unchoke alongside interested is the
// conventional opener and is tolerated everywhere.
func (c *Conn) SendUnchoke() error {
	return c.Send(NewUnchoke())
}

// SendHave advertises a completed piece to the peer.
func (c *Conn) SendHave(index int) error {
	return c.Send(NewHave(uint32(index)))
}

// ReadMessage reads the next frame off the connection. Keep-alives are
// returned as a nil message.
func (c *Conn) ReadMessage() (*Message, error) {
	return ReadMessage(c.nc)
}

// handleMessage applies choke / unchoke / have / bitfield state updates.
// All other messages are ignored; a leecher serves nothing.
func (c *Conn) handleMessage(msg *Message) {
	switch msg.ID {
	case MsgChoke:
		c.choked = true
	case MsgUnchoke:
		c.choked = false
	case MsgBitfield:
		c.bitfield = bitfield.NewFromWire(msg.Payload)
	case MsgHave:
		index, err := ParseHave(msg)
		if err != nil {
			c.logger.Warnf("Ignoring malformed have message: %s", err)
			return
		}
		if c.bitfield != nil {
			c.bitfield.Set(uint(index))
		}
	default:
		if !msg.ID.Known() {
			c.stats.Counter("unsupported_messages").Inc(1)
		}
	}
}

// DownloadPiece downloads piece index of the given length by pipelining
// block requests with a bounded backlog. The returned buffer holds exactly
// length bytes; the caller verifies its hash.
func (c *Conn) DownloadPiece(index int, length int64) ([]byte, error) {
	buf := make([]byte, length)
	var downloaded, requested int64
	backlog := 0

	if t := c.config.DownloadTimeout; t > 0 {
		if err := c.nc.SetDeadline(c.clk.Now().Add(t)); err != nil {
			return nil, fmt.Errorf("set deadline: %s", err)
		}
		defer c.nc.SetDeadline(time.Time{})
	}

	for downloaded < length {
		if !c.choked {
			for backlog < c.config.MaxBacklog && requested < length {
				block := min(int64(c.config.MaxBlockSize), length-requested)
				req := NewRequest(uint32(index), uint32(requested), uint32(block))
				if err := c.Send(req); err != nil {
					return nil, err
				}
				backlog++
				requested += block
			}
		}
		msg, err := c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			// Keep-alive.
			continue
		}
		switch msg.ID {
		case MsgPiece:
			n, err := ParsePiece(uint32(index), buf, msg)
			if err != nil {
				return nil, err
			}
			downloaded += int64(n)
			backlog--
			c.stats.Counter("blocks_received").Inc(1)
		default:
			c.handleMessage(msg)
		}
	}
	return buf, nil
}

// Close closes the connection. Idempotent.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	c.nc.Close()
}

// IsClosed returns true if c is closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}
