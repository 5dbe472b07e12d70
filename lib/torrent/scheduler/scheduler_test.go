package scheduler

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/torrent/scheduler/conn"
	"github.com/remora-dl/remora/tracker/announceclient"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type fakeAnnouncer struct {
	peers    []core.PeerInfo
	interval time.Duration
	err      error
}

func (a *fakeAnnouncer) Announce(
	mi *core.MetaInfo, peerID core.PeerID) ([]core.PeerInfo, time.Duration, error) {

	return a.peers, a.interval, a.err
}

func configFixture() Config {
	return Config{
		MaxWorkers: 2,
		Conn: conn.Config{
			HandshakeTimeout: 2 * time.Second,
			BitfieldTimeout:  200 * time.Millisecond,
			DownloadTimeout:  10 * time.Second,
		},
	}
}

func schedulerFixture(config Config, announcer announceclient.Client) *Scheduler {
	return New(
		config,
		tally.NoopScope,
		clock.New(),
		announcer,
		zap.NewNop().Sugar(),
		WithProgressOutput(io.Discard))
}

func downloadFixture(t *testing.T, tf *core.TestTorrentFile, announcer *fakeAnnouncer) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), tf.MetaInfo.Name())
	s := schedulerFixture(configFixture(), announcer)
	require.NoError(t, s.Download(tf.MetaInfo, outPath))

	result, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, tf.Content, result)
	return outPath
}

func TestDownloadSinglePeer(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(40960, 16384)
	p, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer p.Close()

	downloadFixture(t, tf, &fakeAnnouncer{peers: []core.PeerInfo{p.Addr()}})
}

func TestDownloadTwoPeersWithLossyScheduling(t *testing.T) {
	require := require.New(t)

	// A three piece torrent served by a healthy seeder plus a flaky peer
	// whose connections die after two blocks.
	tf := core.CustomTestTorrentFileFixture(40960, 16384)

	healthy, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer healthy.Close()

	flaky, err := conn.NewFakePeer(tf.MetaInfo, tf.Content, conn.WithMaxBlocks(2))
	require.NoError(err)
	defer flaky.Close()

	downloadFixture(t, tf, &fakeAnnouncer{
		peers: []core.PeerInfo{flaky.Addr(), healthy.Addr()},
	})
}

func TestDownloadSkipsPiecesPeerDoesNotOwn(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(49152, 16384)

	partial, err := conn.NewFakePeer(tf.MetaInfo, tf.Content, conn.WithOwnedPieces(0))
	require.NoError(err)
	defer partial.Close()

	full, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer full.Close()

	downloadFixture(t, tf, &fakeAnnouncer{
		peers: []core.PeerInfo{partial.Addr(), full.Addr()},
	})
}

func TestDownloadManyPiecesAcrossSmallBlocks(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(10240, 1024)
	p, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer p.Close()

	config := configFixture()
	config.Conn.MaxBlockSize = 512
	config.Conn.MaxBacklog = 3

	outPath := filepath.Join(t.TempDir(), tf.MetaInfo.Name())
	s := schedulerFixture(config, &fakeAnnouncer{peers: []core.PeerInfo{p.Addr()}})
	require.NoError(s.Download(tf.MetaInfo, outPath))

	result, err := os.ReadFile(outPath)
	require.NoError(err)
	require.Equal(tf.Content, result)
}

func TestDownloadAnnounceError(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(128, 32)
	s := schedulerFixture(configFixture(), &fakeAnnouncer{err: os.ErrDeadlineExceeded})

	err := s.Download(tf.MetaInfo, filepath.Join(t.TempDir(), "out"))
	require.Error(err)
}

func TestDownloadNoPeers(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(128, 32)
	s := schedulerFixture(configFixture(), &fakeAnnouncer{})

	err := s.Download(tf.MetaInfo, filepath.Join(t.TempDir(), "out"))
	require.Error(err)
}

func TestDownloadStalls(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(128, 32)

	// A peer which is already gone: every worker fails to connect and
	// exits, leaving the queue undrained.
	gone, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	addr := gone.Addr()
	gone.Close()

	s := schedulerFixture(configFixture(), &fakeAnnouncer{peers: []core.PeerInfo{addr}})
	err = s.Download(tf.MetaInfo, filepath.Join(t.TempDir(), tf.MetaInfo.Name()))
	require.Equal(core.ErrStalledDownload, err)
}

// sequencedAnnouncer returns each configured peer list in turn, repeating
// the final one.
type sequencedAnnouncer struct {
	mu        sync.Mutex
	responses [][]core.PeerInfo
	interval  time.Duration
}

func (a *sequencedAnnouncer) Announce(
	mi *core.MetaInfo, peerID core.PeerID) ([]core.PeerInfo, time.Duration, error) {

	a.mu.Lock()
	defer a.mu.Unlock()
	peers := a.responses[0]
	if len(a.responses) > 1 {
		a.responses = a.responses[1:]
	}
	return peers, a.interval, nil
}

func TestDownloadRecoversViaReAnnounce(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(40960, 16384)

	gone, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	goneAddr := gone.Addr()
	gone.Close()

	healthy, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer healthy.Close()

	announcer := &sequencedAnnouncer{
		responses: [][]core.PeerInfo{
			{goneAddr},
			{goneAddr, healthy.Addr()},
		},
		interval: 100 * time.Millisecond,
	}

	config := configFixture()
	config.ReAnnounce = true

	outPath := filepath.Join(t.TempDir(), tf.MetaInfo.Name())
	s := schedulerFixture(config, announcer)
	require.NoError(s.Download(tf.MetaInfo, outPath))

	result, err := os.ReadFile(outPath)
	require.NoError(err)
	require.Equal(tf.Content, result)
}

func TestDownloadRefusesExistingDestination(t *testing.T) {
	require := require.New(t)

	tf := core.CustomTestTorrentFileFixture(128, 32)
	p, err := conn.NewFakePeer(tf.MetaInfo, tf.Content)
	require.NoError(err)
	defer p.Close()

	outPath := filepath.Join(t.TempDir(), tf.MetaInfo.Name())
	require.NoError(os.WriteFile(outPath, []byte("occupied"), 0644))

	s := schedulerFixture(configFixture(), &fakeAnnouncer{peers: []core.PeerInfo{p.Addr()}})
	require.Error(s.Download(tf.MetaInfo, outPath))
}
