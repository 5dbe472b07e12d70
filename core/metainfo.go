package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	bencode "github.com/jackpal/bencode-go"
)

// MetaInfo contains torrent metadata decoded from a .torrent descriptor.
type MetaInfo struct {
	Announce     string `bencode:"announce"`
	Info         Info   `bencode:"info"`
	CreationDate int64  `bencode:"creation date"`
	Comment      string `bencode:"comment"`
	CreatedBy    string `bencode:"created by"`
	Encoding     string `bencode:"encoding"`

	// infoHash is computed from Info once at decode time to avoid
	// unnecessary rehashing.
	infoHash InfoHash
}

// NewMetaInfoFromFile reads and decodes the .torrent descriptor at path.
func NewMetaInfoFromFile(path string) (*MetaInfo, error) {
	if !strings.HasSuffix(path, ".torrent") {
		return nil, ErrWrongFormat
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metainfo: %s", err)
	}
	defer f.Close()

	return NewMetaInfoFromBlob(f)
}

// NewMetaInfoFromBlob decodes a bencoded .torrent descriptor from blob.
func NewMetaInfoFromBlob(blob io.Reader) (*MetaInfo, error) {
	var mi MetaInfo
	if err := bencode.Unmarshal(blob, &mi); err != nil {
		return nil, fmt.Errorf("unmarshal metainfo: %s", err)
	}
	if err := mi.initialize(); err != nil {
		return nil, err
	}
	return &mi, nil
}

// NewMetaInfoFromInfo creates a MetaInfo around an already built Info.
func NewMetaInfoFromInfo(info Info, announce string) (*MetaInfo, error) {
	mi := &MetaInfo{
		Announce: announce,
		Info:     info,
	}
	if err := mi.initialize(); err != nil {
		return nil, err
	}
	return mi, nil
}

// NewMetaInfoFromBytes decodes a bencoded .torrent descriptor from bytes.
func NewMetaInfoFromBytes(b []byte) (*MetaInfo, error) {
	return NewMetaInfoFromBlob(bytes.NewReader(b))
}

// Name returns the torrent name.
func (mi *MetaInfo) Name() string {
	return mi.Info.Name
}

// InfoHash returns the identity of the torrent.
func (mi *MetaInfo) InfoHash() InfoHash {
	return mi.infoHash
}

// metaInfoDict is the encodable shape of a descriptor.
type metaInfoDict struct {
	Announce     string `bencode:"announce"`
	Comment      string `bencode:"comment"`
	CreatedBy    string `bencode:"created by"`
	CreationDate int64  `bencode:"creation date"`
	Encoding     string `bencode:"encoding"`
	Info         Info   `bencode:"info"`
}

// Serialize returns mi as bencoded descriptor bytes.
func (mi *MetaInfo) Serialize() ([]byte, error) {
	b := new(bytes.Buffer)
	d := metaInfoDict{
		Announce:     mi.Announce,
		Comment:      mi.Comment,
		CreatedBy:    mi.CreatedBy,
		CreationDate: mi.CreationDate,
		Encoding:     mi.Encoding,
		Info:         mi.Info,
	}
	if err := bencode.Marshal(b, d); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// initialize validates the decoded info dictionary and computes its hash.
func (mi *MetaInfo) initialize() error {
	if err := mi.Info.Validate(); err != nil {
		return fmt.Errorf("invalid info: %s", err)
	}
	h, err := mi.Info.ComputeInfoHash()
	if err != nil {
		return fmt.Errorf("compute info hash: %s", err)
	}
	mi.infoHash = h
	return nil
}
