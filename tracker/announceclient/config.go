package announceclient

import "time"

// Config defines announce client configuration.
type Config struct {

	// Timeout bounds a single announce request.
	Timeout time.Duration `yaml:"timeout"`

	// Port is the port reported to the tracker. Leechers never listen on
	// it, but the announce protocol requires one.
	Port int `yaml:"port"`
}

func (c Config) applyDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Port == 0 {
		c.Port = 6881
	}
	return c
}
