package scheduler

import (
	"fmt"
	"io"
	"sync"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/lib/store"
)

// Job is one piece pending download. The piece buffer is allocated per
// download attempt and dropped when an attempt fails, so a recycled Job
// costs nothing to hold.
type Job struct {
	Index  int
	Hash   [core.PieceHashSize]byte
	Length int64
}

// pieceQueue is the only shared-mutable state of a download: the pending
// jobs, the peer slot pool, the progress counters, and the output writer.
// A single mutex guards all of it; critical sections are O(1) except for
// addPeers, which walks one tracker peer list, and write, which performs one
// positional file write of up to one piece.
type pieceQueue struct {
	mu sync.Mutex

	pending   []*Job
	peers     []core.PeerInfo
	seenPeers map[string]bool
	nextPeer  int

	numPieces       int
	pieceLength     int64
	written         int
	downloadedBytes int64
	totalBytes      int64

	out         *store.OutputFile
	progressOut io.Writer

	// done is closed when the last piece is written.
	done chan struct{}
}

func newPieceQueue(
	jobs []*Job,
	peers []core.PeerInfo,
	out *store.OutputFile,
	pieceLength int64,
	totalBytes int64,
	progressOut io.Writer) *pieceQueue {

	q := &pieceQueue{
		pending:     jobs,
		seenPeers:   make(map[string]bool),
		numPieces:   len(jobs),
		pieceLength: pieceLength,
		totalBytes:  totalBytes,
		out:         out,
		progressOut: progressOut,
		done:        make(chan struct{}),
	}
	q.addPeers(peers)
	return q
}

// addPeers extends the peer slot pool with previously unseen addresses.
// Returns the number of peers added.
func (q *pieceQueue) addPeers(peers []core.PeerInfo) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var added int
	for _, p := range peers {
		addr := p.Addr()
		if q.seenPeers[addr] {
			continue
		}
		q.seenPeers[addr] = true
		q.peers = append(q.peers, p)
		added++
	}
	return added
}

// takePeerSlot hands out one peer. Each peer is given to at most one worker
// for the lifetime of the download.
func (q *pieceQueue) takePeerSlot() (core.PeerInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.nextPeer >= len(q.peers) {
		return core.PeerInfo{}, false
	}
	p := q.peers[q.nextPeer]
	q.nextPeer++
	return p, true
}

// popJob removes and returns the oldest pending job.
func (q *pieceQueue) popJob() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	return j, true
}

// pushJob recycles a job to the tail of the queue.
func (q *pieceQueue) pushJob(j *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, j)
}

// write commits a verified piece buffer to the output at the piece's byte
// offset, bumps progress, and prints a progress line.
func (q *pieceQueue) write(j *Job, buf []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.out.WriteAt(buf, int64(j.Index)*q.pieceLength); err != nil {
		return err
	}
	q.written++
	q.downloadedBytes += int64(len(buf))
	if q.progressOut != nil {
		fmt.Fprintf(q.progressOut, "%d\t%d\t%.2f%%\n",
			q.downloadedBytes, q.totalBytes,
			float64(q.downloadedBytes)/float64(q.totalBytes)*100)
	}
	if q.written == q.numPieces {
		close(q.done)
	}
	return nil
}

// complete returns true once every piece has been written.
func (q *pieceQueue) complete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.written == q.numPieces
}

// pendingCount returns the number of jobs waiting in the queue.
func (q *pieceQueue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}
