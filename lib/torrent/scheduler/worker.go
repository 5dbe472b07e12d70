package scheduler

import (
	"crypto/sha1"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/torrent/scheduler/conn"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// worker drives one peer connection. It exclusively owns the connection and
// whichever job it currently holds; everything else goes through the queue.
type worker struct {
	queue      *pieceQueue
	connConfig conn.Config
	infoHash   core.InfoHash
	peerID     core.PeerID
	stats      tally.Scope
	clk        clock.Clock
	logger     *zap.SugaredLogger
}

// run takes a peer slot and downloads jobs over one connection until the
// queue drains or the peer fails. Any exit path closes the socket and
// recycles the held job.
func (w *worker) run() {
	peer, ok := w.queue.takePeerSlot()
	if !ok {
		return
	}
	c, err := conn.Dial(
		w.connConfig, w.stats, w.clk, peer, w.infoHash, w.peerID, w.logger)
	if err != nil {
		w.stats.Counter("connect_failures").Inc(1)
		w.logger.Infof("Could not connect to peer %s: %s", peer, err)
		return
	}
	defer c.Close()

	if err := c.SendUnchoke(); err != nil {
		w.logger.Infof("Peer %s failed before start: %s", peer, err)
		return
	}
	if err := c.SendInterested(); err != nil {
		w.logger.Infof("Peer %s failed before start: %s", peer, err)
		return
	}
	w.logger.Debugf("Connected to peer %s", peer)

	for {
		job, ok := w.queue.popJob()
		if !ok {
			return
		}
		if bf := c.Bitfield(); bf != nil && !bf.Has(uint(job.Index)) {
			// Advisory skip; the peer may still acquire the piece.
			w.queue.pushJob(job)
			continue
		}
		buf, err := c.DownloadPiece(job.Index, job.Length)
		if err != nil {
			w.queue.pushJob(job)
			if connFatal(err) {
				w.stats.Counter("peer_failures").Inc(1)
				w.logger.Infof("Disconnecting from peer %s: %s", peer, err)
				return
			}
			w.stats.Counter("piece_skips").Inc(1)
			w.logger.Debugf("Skipping piece %d on peer %s: %s", job.Index, peer, err)
			continue
		}
		if sha1.Sum(buf) != job.Hash {
			w.stats.Counter("hash_mismatches").Inc(1)
			w.logger.Warnf("Piece %d from peer %s failed verification", job.Index, peer)
			w.queue.pushJob(job)
			continue
		}
		if err := c.SendHave(job.Index); err != nil {
			w.logger.Debugf("Could not send have to peer %s: %s", peer, err)
		}
		if err := w.queue.write(job, buf); err != nil {
			w.stats.Counter("write_failures").Inc(1)
			w.logger.Errorf("Could not write piece %d: %s", job.Index, err)
			w.queue.pushJob(job)
			return
		}
		w.stats.Counter("pieces_downloaded").Inc(1)
	}
}

// connFatal classifies download errors which must tear down the connection:
// severed transport, deadline hits, and protocol anomalies. Everything else
// recycles the job onto the queue and tries the next one on the same
// connection.
func connFatal(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, core.ErrIncorrectIndex) || errors.Is(err, core.ErrIncorrectOffset) {
		return true
	}
	return false
}
