// Package announceclient talks the HTTP tracker announce protocol used for
// peer discovery.
package announceclient

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/remora-dl/remora/core"
	"github.com/remora-dl/remora/utils/httputil"

	bencode "github.com/jackpal/bencode-go"
)

// RejectionError occurs when the tracker answers with a non-200 status or
// an explicit failure reason.
type RejectionError struct {
	Reason string
}

func (e RejectionError) Error() string {
	return fmt.Sprintf("tracker rejected announce: %s", e.Reason)
}

// IsRejection returns true if err is a RejectionError.
func IsRejection(err error) bool {
	_, ok := err.(RejectionError)
	return ok
}

// Response is the bencoded tracker reply. Peers use the compact 6 byte
// encoding; interval is advisory.
type Response struct {
	Interval      int64  `bencode:"interval"`
	Peers         string `bencode:"peers"`
	FailureReason string `bencode:"failure reason"`
}

// Client defines a client for announcing and discovering peers.
type Client interface {
	Announce(mi *core.MetaInfo, peerID core.PeerID) ([]core.PeerInfo, time.Duration, error)
}

type client struct {
	config Config
}

// New creates a new Client.
func New(config Config) Client {
	return &client{config.applyDefaults()}
}

// Announce announces the torrent as a fresh leecher and returns the peers
// the tracker handed out, plus the advisory re-announce interval.
func (c *client) Announce(mi *core.MetaInfo, peerID core.PeerID) ([]core.PeerInfo, time.Duration, error) {
	// The announce is one-shot; retry is left to the caller so a slow
	// tracker cannot silently stall the download start.
	resp, err := httputil.Get(
		AnnounceURL(mi, peerID, c.config.Port),
		httputil.SendTimeout(c.config.Timeout))
	if err != nil {
		if serr, ok := err.(httputil.StatusError); ok {
			return nil, 0, RejectionError{fmt.Sprintf("status %d", serr.Status)}
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %s", err)
	}

	// Some trackers pad the reply with whitespace around the dictionary.
	var r Response
	if err := bencode.Unmarshal(bytes.NewReader(bytes.TrimSpace(body)), &r); err != nil {
		return nil, 0, fmt.Errorf("unmarshal response: %s", err)
	}
	if r.FailureReason != "" {
		return nil, 0, RejectionError{r.FailureReason}
	}
	peers, err := core.UnmarshalCompactPeers([]byte(r.Peers))
	if err != nil {
		return nil, 0, fmt.Errorf("peer list: %w", err)
	}
	return peers, time.Duration(r.Interval) * time.Second, nil
}

// AnnounceURL builds the announce GET url. Parameter order follows the
// announce convention; values are percent-encoded over the RFC 3986
// unreserved set, with the info hash and peer id passed as their raw 20
// bytes.
func AnnounceURL(mi *core.MetaInfo, peerID core.PeerID, port int) string {
	params := []string{
		"info_hash=" + escape(mi.InfoHash().Bytes()),
		"peer_id=" + escape(peerID.Bytes()),
		"port=" + strconv.Itoa(port),
		"uploaded=0",
		"downloaded=0",
		"compact=1",
		"left=" + strconv.FormatInt(mi.Info.TotalLength(), 10),
	}
	sep := "?"
	if strings.Contains(mi.Announce, "?") {
		sep = "&"
	}
	return mi.Announce + sep + strings.Join(params, "&")
}

// escape percent-encodes everything outside the RFC 3986 unreserved set.
// url.QueryEscape is close but encodes 0x20 as "+", which corrupts raw
// hash bytes.
func escape(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '.' || c == '-' || c == '_' || c == '~' {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}
