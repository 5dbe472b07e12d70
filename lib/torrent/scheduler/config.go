package scheduler

import (
	"runtime"

	"github.com/remora-dl/remora/lib/torrent/scheduler/conn"
)

// Config is the configuration for one download run.
type Config struct {

	// MaxWorkers caps the number of concurrent peer connections. Defaults
	// to the available parallelism; the effective worker count is also
	// bounded by the number of peers the tracker hands out.
	MaxWorkers int `yaml:"max_workers"`

	// ReAnnounce enables refreshing the peer set on the interval returned
	// by the tracker. Disabled by default: a single announce matches the
	// one-shot behavior most trackers expect from short-lived leechers.
	ReAnnounce bool `yaml:"re_announce"`

	Conn conn.Config `yaml:"conn"`
}

func (c Config) applyDefaults() Config {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = runtime.NumCPU()
	}
	return c
}
