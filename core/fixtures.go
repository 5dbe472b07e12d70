package core

import (
	"bytes"

	"github.com/remora-dl/remora/utils/randutil"
)

// PeerIDFixture returns a randomly generated PeerID.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	return MetaInfoFixture().InfoHash()
}

// PeerInfoFixture returns a randomly generated PeerInfo.
func PeerInfoFixture() PeerInfo {
	return PeerInfo{
		IP:   randutil.IP(),
		Port: randutil.Port(),
	}
}

// TestTorrentFile joins a MetaInfo with the file contents used to generate
// said MetaInfo.
type TestTorrentFile struct {
	MetaInfo *MetaInfo
	Content  []byte
}

// CustomTestTorrentFileFixture returns a randomly generated TestTorrentFile
// of the given size and piece length.
func CustomTestTorrentFileFixture(size, pieceLength uint64) *TestTorrentFile {
	content := randutil.Text(size)
	info, err := NewInfoFromBlob("test_torrent", bytes.NewReader(content), int64(pieceLength))
	if err != nil {
		panic(err)
	}
	mi, err := NewMetaInfoFromInfo(info, "http://localhost/announce")
	if err != nil {
		panic(err)
	}
	return &TestTorrentFile{mi, content}
}

// TestTorrentFileFixture returns a randomly generated TestTorrentFile.
func TestTorrentFileFixture() *TestTorrentFile {
	return CustomTestTorrentFileFixture(128, 32)
}

// MetaInfoFixture returns a randomly generated MetaInfo.
func MetaInfoFixture() *MetaInfo {
	return TestTorrentFileFixture().MetaInfo
}

// CustomMetaInfoFixture returns a randomly generated MetaInfo of the given
// size and piece length.
func CustomMetaInfoFixture(size, pieceLength uint64) *MetaInfo {
	return CustomTestTorrentFileFixture(size, pieceLength).MetaInfo
}
