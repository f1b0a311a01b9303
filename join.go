package trystero

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/expenses/trystero/trymetrics"
)

// occupiedRooms is the process-wide set of currently-joined namespaces,
// guarding against re-entering the same namespace twice.
var occupiedRooms = struct {
	mu sync.Mutex
	ns map[string]bool
}{ns: make(map[string]bool)}

// room holds one namespace's join state: de-duplication sets, the offer
// pool, the signing key, and the announce timer. It is guarded by mu
// throughout, since goroutines for different trackers and different pooled
// peers all touch this state concurrently.
type room struct {
	cfg         Config
	ns          string
	infoHash    string
	trackerURLs []string

	mu             sync.Mutex
	connectedPeers map[string]bool // peerId ∪ offerId
	handledOffers  map[string]bool
	pool           *offerPool
	announceSecs   int
	timer          *time.Timer
	onPeerConnect  func(peer Peer, peerID string)
	closed         bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Room is the handle returned by Join: install a callback with OnPeerJoin,
// tear everything down with Leave.
type Room struct {
	r *room
}

// Join validates cfg, occupies ns, kicks off an immediate announce, and
// returns a Room. The upper layer must call OnPeerJoin to receive connected
// peers and Leave to tear the join down.
//
// If a peer finishes connecting between Join returning and OnPeerJoin being
// called, it is handed to a no-op callback and silently dropped — no
// historical replay of peers that connected before a callback was
// registered is implemented.
func Join(ctx context.Context, cfg Config, ns string) (*Room, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("trystero: Config.AppID is required")
	}
	if cfg.SigningKey == nil {
		return nil, fmt.Errorf("trystero: Config.SigningKey is required")
	}
	if cfg.PeerFactory == nil {
		return nil, fmt.Errorf("trystero: Config.PeerFactory is required")
	}

	urls := cfg.trackerURLs()
	if len(urls) == 0 {
		return nil, ErrEmptyTrackers
	}

	occupiedRooms.mu.Lock()
	if occupiedRooms.ns[ns] {
		occupiedRooms.mu.Unlock()
		return nil, ErrAlreadyJoined
	}
	occupiedRooms.ns[ns] = true
	occupiedRooms.mu.Unlock()

	rctx, cancel := context.WithCancel(ctx)
	r := &room{
		cfg:            cfg,
		ns:             ns,
		infoHash:       InfoHash(cfg.AppID, ns),
		trackerURLs:    urls,
		connectedPeers: make(map[string]bool),
		handledOffers:  make(map[string]bool),
		announceSecs:   defaultAnnounceSecs,
		onPeerConnect:  func(Peer, string) {},
		ctx:            rctx,
		cancel:         cancel,
	}

	trymetrics.AnnounceIntervalSeconds.Set(float64(r.announceSecs))

	// Kick off the first announce immediately; don't wait for the timer.
	go r.tick()

	r.mu.Lock()
	r.armTimer(r.announceSecs)
	r.mu.Unlock()

	return &Room{r: r}, nil
}

// OnPeerJoin installs the callback invoked for every Peer that completes a
// verified handshake. It replaces any previously installed callback.
func (rm *Room) OnPeerJoin(cb func(peer Peer, peerID string)) {
	rm.r.mu.Lock()
	rm.r.onPeerConnect = cb
	rm.r.mu.Unlock()
}

// Leave tears the join down: cancels the announce timer, releases this
// namespace's listener on every tracker socket (the sockets themselves are
// left open for other namespaces), frees the namespace, and cleans the
// offer pool. Leave is idempotent.
func (rm *Room) Leave() {
	r := rm.r
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	pool := r.pool
	handled := r.handledOffers
	connected := r.connectedPeers
	r.mu.Unlock()

	for _, url := range r.trackerURLs {
		registry.releaseListener(url, r.infoHash)
	}

	occupiedRooms.mu.Lock()
	delete(occupiedRooms.ns, r.ns)
	occupiedRooms.mu.Unlock()

	r.cancel()

	if pool != nil {
		pool.clean(handled, connected)
	}
}

// armTimer schedules the next tick in secs seconds. Caller must hold r.mu.
func (r *room) armTimer(secs int) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(time.Duration(secs)*time.Second, r.onTimerFire)
}

func (r *room) onTimerFire() {
	r.tick()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.armTimer(r.announceSecs)
}

// applyIntervalHint grows the announce interval only: when interval is
// strictly greater than the current announceSecs and at most
// maxAnnounceSecs, cancel the timer and reinstall at the new interval. A
// tracker can never shrink announceSecs.
func (r *room) applyIntervalHint(interval int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || interval <= r.announceSecs || interval > maxAnnounceSecs {
		return
	}
	r.announceSecs = interval
	trymetrics.AnnounceIntervalSeconds.Set(float64(interval))
	r.armTimer(interval)
}
