// Package scheduler coordinates a download: it owns the metainfo, the
// shared piece queue, the destination file, and the pool of peer-driven
// workers.
package scheduler

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/store"
	"github.com/remora-dl/remora/tracker/announceclient"
	"github.com/remora-dl/remora/utils/memsize"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Scheduler runs downloads.
type Scheduler struct {
	config    Config
	stats     tally.Scope
	clk       clock.Clock
	announcer announceclient.Client
	logger    *zap.SugaredLogger

	// progressOut receives one line per written piece.
	progressOut io.Writer
}

// Option overrides a Scheduler default.
type Option func(*Scheduler)

// WithProgressOutput redirects progress lines, e.g. for tests.
func WithProgressOutput(w io.Writer) Option {
	return func(s *Scheduler) { s.progressOut = w }
}

// New creates a new Scheduler.
func New(
	config Config,
	stats tally.Scope,
	clk clock.Clock,
	announcer announceclient.Client,
	logger *zap.SugaredLogger,
	opts ...Option) *Scheduler {

	s := &Scheduler{
		config:      config.applyDefaults(),
		stats:       stats.Tagged(map[string]string{"module": "scheduler"}),
		clk:         clk,
		announcer:   announcer,
		logger:      logger,
		progressOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Download fetches the file described by mi into outPath. It returns once
// every piece has been verified and written, or with the first fatal error.
func (s *Scheduler) Download(mi *core.MetaInfo, outPath string) error {
	peerID, err := core.RandomPeerID()
	if err != nil {
		return fmt.Errorf("generate peer id: %s", err)
	}

	peers, interval, err := s.announcer.Announce(mi, peerID)
	if err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	if len(peers) == 0 {
		return fmt.Errorf("tracker returned no peers")
	}
	s.logger.Infof("Received %d peers from tracker", len(peers))

	total := mi.Info.TotalLength()
	jobs := make([]*Job, mi.Info.NumPieces())
	for i := range jobs {
		hash, err := mi.Info.PieceHash(i)
		if err != nil {
			return fmt.Errorf("piece hash: %s", err)
		}
		jobs[i] = &Job{
			Index:  i,
			Hash:   hash,
			Length: mi.Info.PieceLengthAt(i),
		}
	}

	out, err := store.CreateOutputFile(outPath, total)
	if err != nil {
		return err
	}
	defer out.Close()

	q := newPieceQueue(jobs, peers, out, mi.Info.PieceLength, total, s.progressOut)

	start := s.clk.Now()
	g := newWorkerGroup()
	numWorkers := min(len(peers), s.config.MaxWorkers)
	for i := 0; i < numWorkers; i++ {
		g.spawn(s.newWorker(q, mi.InfoHash(), peerID).run)
	}
	if s.config.ReAnnounce && interval > 0 {
		g.spawn(func() { s.refreshPeers(g, q, mi, peerID, interval) })
	}
	g.wait()

	if !q.complete() {
		s.logger.Errorf(
			"All workers exited with %d pieces pending", q.pendingCount())
		return core.ErrStalledDownload
	}
	s.logger.Infof("Downloaded %s in %s",
		memsize.Format(uint64(total)), s.clk.Now().Sub(start))
	return nil
}

func (s *Scheduler) newWorker(q *pieceQueue, h core.InfoHash, peerID core.PeerID) *worker {
	return &worker{
		queue:      q,
		connConfig: s.config.Conn,
		infoHash:   h,
		peerID:     peerID,
		stats:      s.stats,
		clk:        s.clk,
		logger:     s.logger,
	}
}

// refreshPeers re-announces on the tracker's advisory interval and spawns
// workers for previously unseen peers. Exits when the download completes.
func (s *Scheduler) refreshPeers(
	g *workerGroup,
	q *pieceQueue,
	mi *core.MetaInfo,
	peerID core.PeerID,
	interval time.Duration) {

	// Refreshes which find no new peers while every worker has already
	// exited cannot unstall the download; give up after a few so the
	// stall surfaces instead of announcing forever.
	const maxIdleRefreshes = 3

	var idle int
	for {
		select {
		case <-q.done:
			return
		case <-s.clk.After(interval):
		}
		peers, next, err := s.announcer.Announce(mi, peerID)
		if err != nil {
			s.logger.Warnf("Peer refresh announce failed: %s", err)
			continue
		}
		added := q.addPeers(peers)
		if added > 0 {
			s.logger.Infof("Tracker refresh added %d new peers", added)
			for i := 0; i < added && i < s.config.MaxWorkers; i++ {
				g.spawn(s.newWorker(q, mi.InfoHash(), peerID).run)
			}
		}
		if added == 0 && g.numActive() == 1 {
			idle++
			if idle >= maxIdleRefreshes {
				return
			}
		} else {
			idle = 0
		}
		if next > 0 {
			interval = next
		}
	}
}

// workerGroup tracks worker goroutines. Unlike a bare WaitGroup it permits
// spawning from within a member goroutine (the peer refresher) without
// racing wait, and exposes how many members are still running.
type workerGroup struct {
	wg     sync.WaitGroup
	active *atomic.Int32
}

func newWorkerGroup() *workerGroup {
	return &workerGroup{active: atomic.NewInt32(0)}
}

// spawn runs f in a new goroutine tracked by the group. Must be called
// either before wait or from within a tracked goroutine.
func (g *workerGroup) spawn(f func()) {
	g.wg.Add(1)
	g.active.Inc()
	go func() {
		defer g.wg.Done()
		defer g.active.Dec()
		f()
	}()
}

func (g *workerGroup) numActive() int {
	return int(g.active.Load())
}

func (g *workerGroup) wait() {
	g.wg.Wait()
}
