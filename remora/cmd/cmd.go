package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/torrent/scheduler"
	"github.com/remora-dl/remora/metrics"
	"github.com/remora-dl/remora/tracker/announceclient"
	"github.com/remora-dl/remora/utils/configutil"
	"github.com/remora-dl/remora/utils/log"
	"github.com/remora-dl/remora/utils/memsize"

	"github.com/andres-erbsen/clock"
)

// Flags defines remora CLI flags.
type Flags struct {
	TorrentPath string
	DestDir     string
	ConfigFile  string
}

// ParseFlags parses remora CLI flags: remora <path-to-.torrent> [-d dir].
func ParseFlags() *Flags {
	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, "Missing file argument")
		fmt.Fprintf(os.Stderr, "usage: %s <path-to-.torrent> [-d <dest-dir>] [-config <file>]\n",
			filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	flags := &Flags{TorrentPath: args[0]}
	fs := flag.NewFlagSet("remora", flag.ExitOnError)
	fs.StringVar(&flags.DestDir, "d", ".", "directory the downloaded file is written into")
	fs.StringVar(&flags.ConfigFile, "config", "", "configuration file path")
	fs.Parse(args[1:])
	return flags
}

// Run executes one download and returns its terminal error, if any.
func Run(flags *Flags) error {
	config := Config{ZapLogging: log.DefaultConfig()}
	if err := configutil.Load(flags.ConfigFile, &config); err != nil {
		return fmt.Errorf("load config: %s", err)
	}
	logger := log.ConfigureLogger(config.ZapLogging)
	defer logger.Sync()

	stats, closer, err := metrics.New(config.Metrics)
	if err != nil {
		return fmt.Errorf("init metrics: %s", err)
	}
	defer closer.Close()

	mi, err := core.NewMetaInfoFromFile(flags.TorrentPath)
	if err != nil {
		return fmt.Errorf("metainfo: %w", err)
	}
	log.Infof("Downloading %s (%s) via %s",
		mi.Name(), memsize.Format(uint64(mi.Info.TotalLength())), mi.Announce)

	sched := scheduler.New(
		config.Scheduler,
		stats,
		clock.New(),
		announceclient.New(config.Tracker),
		logger)
	outPath := filepath.Join(flags.DestDir, mi.Name())
	if err := sched.Download(mi, outPath); err != nil {
		return err
	}
	log.Infof("Wrote %s", outPath)
	return nil
}
