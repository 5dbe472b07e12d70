package cmd

import (
	"github.com/remora-dl/remora/lib/torrent/scheduler"
	"github.com/remora-dl/remora/metrics"
	"github.com/remora-dl/remora/tracker/announceclient"

	"go.uber.org/zap"
)

// Config defines remora configuration. The zero value works; every section
// applies its own defaults.
type Config struct {
	ZapLogging zap.Config            `yaml:"zap"`
	Metrics    metrics.Config        `yaml:"metrics"`
	Scheduler  scheduler.Config      `yaml:"scheduler"`
	Tracker    announceclient.Config `yaml:"tracker"`
}
