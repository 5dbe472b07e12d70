package core

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"

	bencode "github.com/jackpal/bencode-go"
)

// PieceHashSize is the size of each piece hash.
const PieceHashSize = sha1.Size

// FileInfo describes one file of a multi-file torrent.
type FileInfo struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

// Info is a torrent info dictionary. Exactly one of Length / Files is set,
// depending on whether the torrent describes a single file.
type Info struct {
	PieceLength int64      `bencode:"piece length"`
	Pieces      []byte     `bencode:"pieces"`
	Name        string     `bencode:"name"`
	Length      int64      `bencode:"length"`
	Files       []FileInfo `bencode:"files"`
}

// singleFileInfo is the canonical single-file form of an info dictionary.
// Fields are declared in bencode key order so Marshal reproduces the exact
// bytes the torrent creator hashed.
type singleFileInfo struct {
	Length      int64  `bencode:"length"`
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      []byte `bencode:"pieces"`
}

// multiFileInfo is the canonical multi-file form of an info dictionary.
type multiFileInfo struct {
	Files       []FileInfo `bencode:"files"`
	Name        string     `bencode:"name"`
	PieceLength int64      `bencode:"piece length"`
	Pieces      []byte     `bencode:"pieces"`
}

// NewInfoFromBlob creates a single-file Info by hashing blob content in
// pieceLength chunks.
func NewInfoFromBlob(name string, blob io.Reader, pieceLength int64) (Info, error) {
	length, pieces, err := generatePieces(blob, pieceLength)
	if err != nil {
		return Info{}, fmt.Errorf("generate pieces: %s", err)
	}
	return Info{
		PieceLength: pieceLength,
		Pieces:      pieces,
		Name:        name,
		Length:      length,
	}, nil
}

// generatePieces hashes blob content in pieceLength chunks.
func generatePieces(blob io.Reader, pieceLength int64) (length int64, pieces []byte, err error) {
	if pieceLength <= 0 {
		return 0, nil, errors.New("piece length must be positive")
	}
	for {
		h := sha1.New()
		n, err := io.CopyN(h, blob, pieceLength)
		if err != nil && err != io.EOF {
			return 0, nil, fmt.Errorf("read blob: %s", err)
		}
		length += n
		if n == 0 {
			break
		}
		pieces = h.Sum(pieces)
		if n < pieceLength {
			break
		}
	}
	return length, pieces, nil
}

// MultiFile returns true if info describes more than one file.
func (info *Info) MultiFile() bool {
	return len(info.Files) > 0
}

// TotalLength returns the total length of all torrent files.
func (info *Info) TotalLength() int64 {
	if !info.MultiFile() {
		return info.Length
	}
	var total int64
	for _, f := range info.Files {
		total += f.Length
	}
	return total
}

// NumPieces returns the number of pieces in the torrent.
func (info *Info) NumPieces() int {
	if len(info.Pieces)%PieceHashSize != 0 {
		panic(len(info.Pieces))
	}
	return len(info.Pieces) / PieceHashSize
}

// PieceHash returns the expected hash of piece i.
func (info *Info) PieceHash(i int) ([PieceHashSize]byte, error) {
	var h [PieceHashSize]byte
	if i < 0 || i >= info.NumPieces() {
		return h, fmt.Errorf("piece index %d out of range %d", i, info.NumPieces())
	}
	copy(h[:], info.Pieces[i*PieceHashSize:(i+1)*PieceHashSize])
	return h, nil
}

// PieceLengthAt returns the length of piece i. All pieces but possibly the
// last are exactly PieceLength bytes.
func (info *Info) PieceLengthAt(i int) int64 {
	if i < 0 || i >= info.NumPieces() {
		return 0
	}
	if remaining := info.TotalLength() - info.PieceLength*int64(i); remaining < info.PieceLength {
		return remaining
	}
	return info.PieceLength
}

// Validate returns an error if the Info is invalid.
func (info *Info) Validate() error {
	if len(info.Pieces) == 0 {
		return ErrEmptyPieces
	}
	if len(info.Pieces)%PieceHashSize != 0 {
		return ErrPiecesNotMultipleOf20
	}
	if info.PieceLength <= 0 {
		return errors.New("non-positive piece length")
	}
	expected := int((info.TotalLength() + info.PieceLength - 1) / info.PieceLength)
	if expected != info.NumPieces() {
		return fmt.Errorf(
			"piece count and file lengths are at odds: num pieces %d, expected %d",
			info.NumPieces(), expected)
	}
	return nil
}

// ComputeInfoHash re-encodes info in its canonical form and returns the hash
// of the encoding. It is the identity of the torrent and must match the hash
// the tracker expects.
func (info *Info) ComputeInfoHash() (InfoHash, error) {
	b := new(bytes.Buffer)
	var err error
	if info.MultiFile() {
		err = bencode.Marshal(b, multiFileInfo{
			Files:       info.Files,
			Name:        info.Name,
			PieceLength: info.PieceLength,
			Pieces:      info.Pieces,
		})
	} else {
		err = bencode.Marshal(b, singleFileInfo{
			Length:      info.Length,
			Name:        info.Name,
			PieceLength: info.PieceLength,
			Pieces:      info.Pieces,
		})
	}
	if err != nil {
		return InfoHash{}, err
	}
	return NewInfoHashFromBytes(b.Bytes()), nil
}
