// Package bitfield implements the bit-addressed piece vector peers
// advertise. The wire layout is big endian within each byte: piece i lives
// in byte i/8 at bit 7-(i%8).
package bitfield

import "github.com/willf/bitset"

// Bitfield tracks which pieces of a torrent a peer possesses.
type Bitfield struct {
	numPieces uint
	b         *bitset.BitSet
}

// New creates an empty Bitfield sized for numPieces pieces.
func New(numPieces uint) *Bitfield {
	return &Bitfield{
		numPieces: numPieces,
		b:         bitset.New(numPieces),
	}
}

// NewFromWire decodes a wire-format bitfield. The number of addressable
// pieces is eight per raw byte; trailing pad bits decode as unset pieces.
func NewFromWire(raw []byte) *Bitfield {
	f := New(uint(len(raw)) * 8)
	for i, b := range raw {
		for j := uint(0); j < 8; j++ {
			if b&(1<<(7-j)) != 0 {
				f.b.Set(uint(i)*8 + j)
			}
		}
	}
	return f
}

// Has returns true if piece i is set. Out of range indices are never set.
func (f *Bitfield) Has(i uint) bool {
	if i >= f.numPieces {
		return false
	}
	return f.b.Test(i)
}

// Set marks piece i. Setting an out of range index is a no-op.
func (f *Bitfield) Set(i uint) {
	if i >= f.numPieces {
		return
	}
	f.b.Set(i)
}

// Len returns the number of addressable pieces.
func (f *Bitfield) Len() uint {
	return f.numPieces
}

// Count returns the number of set pieces.
func (f *Bitfield) Count() uint {
	return f.b.Count()
}

// Complete returns true if every piece is set.
func (f *Bitfield) Complete() bool {
	return f.Count() == f.numPieces
}

// ToWire encodes f in wire format, ceil(numPieces / 8) bytes.
func (f *Bitfield) ToWire() []byte {
	raw := make([]byte, (f.numPieces+7)/8)
	for i := uint(0); i < f.numPieces; i++ {
		if f.b.Test(i) {
			raw[i/8] |= 1 << (7 - i%8)
		}
	}
	return raw
}
