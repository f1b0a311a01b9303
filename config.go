package trystero

import (
	"crypto/ecdsa"
	"log"
)

// Tunables governing the offer pool size and announce cadence.
const (
	offerPoolSize       = 10
	defaultAnnounceSecs = 33
	maxAnnounceSecs     = 120
	defaultRedundancy   = 2
)

// DefaultTrackerURLs are four well-known WebTorrent-compatible trackers,
// used when a Config supplies none.
var DefaultTrackerURLs = []string{
	"wss://tracker.openwebtorrent.com",
	"wss://tracker.btorrent.xyz",
	"wss://tracker.webtorrent.dev",
	"wss://tracker.files.fm:7073/announce",
}

// Logger is the minimal logging surface the core needs. The stdlib *log.Logger
// satisfies it; callers embedding trystero in a larger service can adapt
// their own structured logger with a one-line wrapper.
type Logger interface {
	Printf(format string, args ...any)
}

// Config configures a single Join call.
type Config struct {
	// AppID namespaces this application's swarms apart from any other
	// application sharing the same trackers. Required.
	AppID string

	// Password, if set, is available to derive a room key via
	// sdpcrypto.DeriveRoomKey for the external Room layer. The signaling
	// core never reads or uses it.
	Password string

	// SigningKey authenticates this join's SDPs. Required; see
	// sdpcrypto.GenerateKey.
	SigningKey *ecdsa.PrivateKey

	// TrackerURLs lists the WebSocket tracker endpoints to announce to. If
	// empty, DefaultTrackerURLs is used, trimmed to TrackerRedundancy.
	TrackerURLs []string

	// TrackerRedundancy bounds how many trackers to use when TrackerURLs is
	// empty. Defaults to 2.
	TrackerRedundancy int

	// RTCConfig is passed through to PeerFactory untouched.
	RTCConfig RTCConfig

	// PeerFactory creates Peers for the offer pool and for responders. If
	// nil, Join returns an error rather than guessing a WebRTC
	// implementation (see pionpeer.New for a ready-made factory).
	PeerFactory PeerFactory

	// Logger receives warnings for non-fatal conditions (bad frames,
	// tracker failures, verification failures). Defaults to log.Default().
	Logger Logger
}

func (c *Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c *Config) trackerURLs() []string {
	if len(c.TrackerURLs) > 0 {
		return c.TrackerURLs
	}
	n := c.TrackerRedundancy
	if n <= 0 {
		n = defaultRedundancy
	}
	if n > len(DefaultTrackerURLs) {
		n = len(DefaultTrackerURLs)
	}
	return DefaultTrackerURLs[:n]
}
