package core

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoPieceSizesSumToTotalLength(t *testing.T) {
	tests := []struct {
		desc        string
		size        uint64
		pieceLength uint64
	}{
		{"even split", 128, 32},
		{"short last piece", 100, 32},
		{"single piece", 16, 32},
		{"piece length one", 7, 1},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require := require.New(t)

			info := CustomMetaInfoFixture(test.size, test.pieceLength).Info
			var sum int64
			for i := 0; i < info.NumPieces(); i++ {
				if i < info.NumPieces()-1 {
					require.Equal(info.PieceLength, info.PieceLengthAt(i))
				}
				sum += info.PieceLengthAt(i)
			}
			require.Equal(info.TotalLength(), sum)
		})
	}
}

func TestInfoPieceLengthAtOutOfRange(t *testing.T) {
	require := require.New(t)

	info := CustomMetaInfoFixture(128, 32).Info
	require.Equal(int64(0), info.PieceLengthAt(-1))
	require.Equal(int64(0), info.PieceLengthAt(info.NumPieces()))
}

func TestInfoPieceHashMatchesContent(t *testing.T) {
	require := require.New(t)

	tf := CustomTestTorrentFileFixture(100, 32)
	info := tf.MetaInfo.Info
	for i := 0; i < info.NumPieces(); i++ {
		start := int64(i) * info.PieceLength
		end := start + info.PieceLengthAt(i)
		expected := sha1.Sum(tf.Content[start:end])

		h, err := info.PieceHash(i)
		require.NoError(err)
		require.Equal(expected, h)
	}
}

func TestInfoPieceHashOutOfRange(t *testing.T) {
	require := require.New(t)

	info := CustomMetaInfoFixture(128, 32).Info
	_, err := info.PieceHash(info.NumPieces())
	require.Error(err)
}

func TestInfoValidateErrors(t *testing.T) {
	require := require.New(t)

	valid := CustomMetaInfoFixture(128, 32).Info

	empty := valid
	empty.Pieces = nil
	require.Equal(ErrEmptyPieces, empty.Validate())

	ragged := valid
	ragged.Pieces = valid.Pieces[:len(valid.Pieces)-1]
	require.Equal(ErrPiecesNotMultipleOf20, ragged.Validate())

	mismatched := valid
	mismatched.Length = valid.Length + valid.PieceLength
	require.Error(mismatched.Validate())
}

func TestInfoMultiFileTotalLength(t *testing.T) {
	require := require.New(t)

	info := Info{
		PieceLength: 32,
		Pieces:      bytes.Repeat([]byte{1}, PieceHashSize*4),
		Name:        "multi",
		Files: []FileInfo{
			{Length: 60, Path: []string{"a", "b.bin"}},
			{Length: 40, Path: []string{"c.bin"}},
		},
	}
	require.True(info.MultiFile())
	require.Equal(int64(100), info.TotalLength())
	require.NoError(info.Validate())
}

func TestComputeInfoHashDistinguishesContent(t *testing.T) {
	require := require.New(t)

	a := CustomMetaInfoFixture(128, 32).Info
	b := a
	b.Name = a.Name + "x"

	ha, err := a.ComputeInfoHash()
	require.NoError(err)
	hb, err := b.ComputeInfoHash()
	require.NoError(err)
	require.NotEqual(ha, hb)
}
