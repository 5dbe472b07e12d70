package core

import "errors"

// Errors for torrent inputs and integrity. Transport errors are surfaced as
// net / io errors and classified at the call site.
var (
	// ErrWrongFormat returns when a metainfo path does not name a .torrent file.
	ErrWrongFormat = errors.New("file is not a .torrent file")

	// ErrEmptyPieces returns when a metainfo contains no piece hashes.
	ErrEmptyPieces = errors.New("metainfo has empty pieces")

	// ErrPiecesNotMultipleOf20 returns when the pieces blob cannot be sliced
	// into whole SHA-1 hashes.
	ErrPiecesNotMultipleOf20 = errors.New("pieces length is not a multiple of 20")

	// ErrIncorrectHash returns when a handshake echoes the wrong info hash.
	ErrIncorrectHash = errors.New("hash mismatch")

	// ErrBadHandshake returns when a peer handshake cannot be parsed.
	ErrBadHandshake = errors.New("malformed handshake")

	// ErrIncorrectIndex returns when a piece message names an index the
	// receiver did not request.
	ErrIncorrectIndex = errors.New("piece message has incorrect index")

	// ErrIncorrectOffset returns when a piece message block does not fit in
	// the piece being assembled.
	ErrIncorrectOffset = errors.New("piece message block out of bounds")

	// ErrMalformedCompactPeers returns when a compact peer list is not a
	// multiple of 6 bytes.
	ErrMalformedCompactPeers = errors.New("compact peer list has invalid length")

	// ErrStalledDownload returns when every worker has exited while pieces
	// are still pending.
	ErrStalledDownload = errors.New("download stalled with pending pieces")
)
