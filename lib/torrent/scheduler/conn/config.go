package conn

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config is the configuration for individual peer connections.
type Config struct {

	// HandshakeTimeout is the timeout for dialing, writing, and reading
	// connections during handshake.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// BitfieldTimeout bounds the wait for the optional bitfield frame a peer
	// may send right after the handshake.
	BitfieldTimeout time.Duration `yaml:"bitfield_timeout"`

	// DownloadTimeout bounds a single piece download. A download which does
	// not finish within the deadline fails with a timeout and the peer is
	// torn down. Zero selects the default of two minutes; a negative value
	// disables the deadline.
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	// MaxBacklog is the maximum number of outstanding block requests on one
	// connection.
	MaxBacklog int `yaml:"max_backlog"`

	// MaxBlockSize is the maximum length of a single block request.
	MaxBlockSize datasize.ByteSize `yaml:"max_block_size"`
}

func (c Config) applyDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.BitfieldTimeout == 0 {
		c.BitfieldTimeout = time.Second
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 2 * time.Minute
	}
	if c.MaxBacklog == 0 {
		c.MaxBacklog = 5
	}
	if c.MaxBlockSize == 0 {
		c.MaxBlockSize = 16 * datasize.KB
	}
	return c
}
