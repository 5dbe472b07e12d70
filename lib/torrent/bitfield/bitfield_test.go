package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitfieldDuality(t *testing.T) {
	require := require.New(t)

	for i := uint(0); i < 16; i++ {
		f := New(16)
		f.Set(i)
		for j := uint(0); j < 16; j++ {
			require.Equal(i == j, f.Has(j))
		}
	}
}

func TestBitfieldOutOfRange(t *testing.T) {
	require := require.New(t)

	f := New(9)
	require.False(f.Has(9))
	require.False(f.Has(1000))

	f.Set(9)
	f.Set(1000)
	require.Equal(uint(0), f.Count())
}

func TestBitfieldFromWireLayout(t *testing.T) {
	require := require.New(t)

	f := NewFromWire([]byte{0b11001100, 0b10101010})
	expected := []bool{
		true, true, false, false, true, true, false, false,
		true, false, true, false, true, false, true, false,
	}
	require.Equal(uint(16), f.Len())
	for i, e := range expected {
		require.Equal(e, f.Has(uint(i)), "bit %d", i)
	}
}

func TestBitfieldWireRoundTrip(t *testing.T) {
	require := require.New(t)

	raw := []byte{0x5b, 0x00, 0xff, 0x81}
	require.Equal(raw, NewFromWire(raw).ToWire())
}

func TestBitfieldToWirePadsFinalByte(t *testing.T) {
	require := require.New(t)

	f := New(10)
	f.Set(0)
	f.Set(9)
	require.Equal([]byte{0b10000000, 0b01000000}, f.ToWire())
}

func TestBitfieldComplete(t *testing.T) {
	require := require.New(t)

	f := New(3)
	require.False(f.Complete())
	for i := uint(0); i < 3; i++ {
		f.Set(i)
	}
	require.True(f.Complete())
	require.Equal(uint(3), f.Count())
}
