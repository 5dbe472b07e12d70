package conn

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/remora-dl/remora/core"
)

// MessageID identifies the type of a peer wire message.
type MessageID uint8

// Message ids defined by the peer wire protocol.
const (
	MsgChoke         MessageID = 0
	MsgUnchoke       MessageID = 1
	MsgInterested    MessageID = 2
	MsgNotInterested MessageID = 3
	MsgHave          MessageID = 4
	MsgBitfield      MessageID = 5
	MsgRequest       MessageID = 6
	MsgPiece         MessageID = 7
	MsgCancel        MessageID = 8
)

func (id MessageID) String() string {
	switch id {
	case MsgChoke:
		return "choke"
	case MsgUnchoke:
		return "unchoke"
	case MsgInterested:
		return "interested"
	case MsgNotInterested:
		return "not_interested"
	case MsgHave:
		return "have"
	case MsgBitfield:
		return "bitfield"
	case MsgRequest:
		return "request"
	case MsgPiece:
		return "piece"
	case MsgCancel:
		return "cancel"
	}
	return fmt.Sprintf("unknown(%d)", uint8(id))
}

// Known returns true if id is defined by the protocol. Unknown ids are
// consumed off the stream and skipped by the caller.
func (id MessageID) Known() bool {
	return id <= MsgCancel
}

// Message is a single length-prefixed peer wire frame. A nil *Message is
// the keep-alive frame.
type Message struct {
	ID      MessageID
	Payload []byte
}

// Serialize returns the wire form of m: a big-endian u32 length prefix,
// the id byte, and the payload. A nil message serializes as a keep-alive.
func (m *Message) Serialize() []byte {
	if m == nil {
		return make([]byte, 4)
	}
	length := uint32(len(m.Payload) + 1)
	buf := make([]byte, 4+length)
	binary.BigEndian.PutUint32(buf, length)
	buf[4] = byte(m.ID)
	copy(buf[5:], m.Payload)
	return buf
}

// ReadMessage reads one frame off r. Keep-alives are returned as a nil
// message with a nil error; the caller loops. Frames with unknown ids are
// fully consumed and returned so the caller can skip them without tearing
// down the stream.
func ReadMessage(r io.Reader) (*Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &Message{
		ID:      MessageID(buf[0]),
		Payload: buf[1:],
	}, nil
}

// NewChoke returns a choke message.
func NewChoke() *Message { return &Message{ID: MsgChoke} }

// NewUnchoke returns an unchoke message.
func NewUnchoke() *Message { return &Message{ID: MsgUnchoke} }

// NewInterested returns an interested message.
func NewInterested() *Message { return &Message{ID: MsgInterested} }

// NewNotInterested returns a not-interested message.
func NewNotInterested() *Message { return &Message{ID: MsgNotInterested} }

// NewHave returns a have message for the given piece.
func NewHave(index uint32) *Message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, index)
	return &Message{ID: MsgHave, Payload: payload}
}

// NewBitfield returns a bitfield message with the given wire bytes.
func NewBitfield(raw []byte) *Message {
	return &Message{ID: MsgBitfield, Payload: raw}
}

// NewRequest returns a request message for a block.
func NewRequest(index, begin, length uint32) *Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload, index)
	binary.BigEndian.PutUint32(payload[4:], begin)
	binary.BigEndian.PutUint32(payload[8:], length)
	return &Message{ID: MsgRequest, Payload: payload}
}

// NewCancel returns a cancel message for a block.
func NewCancel(index, begin, length uint32) *Message {
	m := NewRequest(index, begin, length)
	m.ID = MsgCancel
	return m
}

// NewPiece returns a piece message carrying a block.
func NewPiece(index, begin uint32, block []byte) *Message {
	payload := make([]byte, 8+len(block))
	binary.BigEndian.PutUint32(payload, index)
	binary.BigEndian.PutUint32(payload[4:], begin)
	copy(payload[8:], block)
	return &Message{ID: MsgPiece, Payload: payload}
}

// ParseHave parses the piece index out of a have message.
func ParseHave(m *Message) (uint32, error) {
	if m.ID != MsgHave {
		return 0, fmt.Errorf("expected have message, got %s", m.ID)
	}
	if len(m.Payload) != 4 {
		return 0, fmt.Errorf("have payload has length %d, expected 4", len(m.Payload))
	}
	return binary.BigEndian.Uint32(m.Payload), nil
}

// ParsePiece copies the block of a piece message for piece index into buf
// at the block's offset. Returns the number of bytes copied.
func ParsePiece(index uint32, buf []byte, m *Message) (int, error) {
	if m.ID != MsgPiece {
		return 0, fmt.Errorf("expected piece message, got %s", m.ID)
	}
	if len(m.Payload) < 8 {
		return 0, fmt.Errorf("piece payload has length %d, expected at least 8", len(m.Payload))
	}
	parsedIndex := binary.BigEndian.Uint32(m.Payload[0:4])
	if parsedIndex != index {
		return 0, core.ErrIncorrectIndex
	}
	begin := binary.BigEndian.Uint32(m.Payload[4:8])
	block := m.Payload[8:]
	if int(begin)+len(block) > len(buf) {
		return 0, core.ErrIncorrectOffset
	}
	copy(buf[begin:], block)
	return len(block), nil
}

// ParseRequest parses the block bounds of a request or cancel message.
func ParseRequest(m *Message) (index, begin, length uint32, err error) {
	if m.ID != MsgRequest && m.ID != MsgCancel {
		return 0, 0, 0, fmt.Errorf("expected request message, got %s", m.ID)
	}
	if len(m.Payload) != 12 {
		return 0, 0, 0, fmt.Errorf("request payload has length %d, expected 12", len(m.Payload))
	}
	index = binary.BigEndian.Uint32(m.Payload[0:4])
	begin = binary.BigEndian.Uint32(m.Payload[4:8])
	length = binary.BigEndian.Uint32(m.Payload[8:12])
	return index, begin, length, nil
}
