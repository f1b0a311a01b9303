package trystero

import (
	"github.com/expenses/trystero/sdpcrypto"
	"github.com/expenses/trystero/trymetrics"
)

// tick is one announce-loop iteration: clean and rebuild the offer pool,
// sign every pooled offer's local SDP, and fan out an announce frame to
// every configured tracker. Overlapping ticks (a new one scheduled
// before a prior one's sends finish) are tolerated: each tick builds its own
// pool and its own frame, and mutation of shared de-dup state happens only
// through r.mu.
func (r *room) tick() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	oldPool := r.pool
	handled := r.handledOffers
	connected := r.connectedPeers
	r.mu.Unlock()

	if oldPool != nil {
		oldPool.clean(handled, connected)
	}

	r.mu.Lock()
	r.handledOffers = make(map[string]bool)
	r.mu.Unlock()

	pool, err := makeOffers(r.cfg.PeerFactory, r.cfg.RTCConfig)
	if err != nil {
		r.cfg.logger().Printf("trystero: announce: %v", err)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		pool.destroyAll()
		return
	}
	r.pool = pool
	r.mu.Unlock()

	sdps := pool.localSDPs(r.ctx)

	offers := make([]offerEntry, 0, len(sdps))
	for id, sdp := range sdps {
		signed, err := sdpcrypto.Sign(r.cfg.SigningKey, sdp)
		if err != nil {
			r.cfg.logger().Printf("trystero: sign offer: %v", err)
			continue
		}
		offers = append(offers, offerEntry{
			OfferID: id,
			Offer:   sdpPayload{Type: "offer", SDP: signed},
		})
	}

	payload := frame{
		Action:   "announce",
		InfoHash: r.infoHash,
		PeerID:   SelfID,
		NumWant:  offerPoolSize,
		Offers:   offers,
	}

	for _, url := range r.trackerURLs {
		go r.announceToTracker(url, payload)
	}
}

// announceToTracker ensures a socket handle exists for url, then acts on
// its readyState. OPEN sends directly; CLOSED is a stale socket and gets a
// fresh dial before sending; CONNECTING is skipped for this tick.
func (r *room) announceToTracker(url string, payload frame) {
	ts := registry.ensure(url, r.infoHash, func(data []byte) { r.handleFrame(url, data) })

	switch ts.readyState() {
	case socketOpen:
		// fall through to send
	case socketConnecting:
		trymetrics.Announces.WithLabelValues(url, "skipped").Inc()
		return
	default: // socketClosed: StaleSocket, force-reopen and retry once
		if err := ts.dial(r.ctx); err != nil {
			r.cfg.logger().Printf("trystero: dial %s: %v", url, err)
			trymetrics.Announces.WithLabelValues(url, "error").Inc()
			return
		}
	}

	if err := ts.send(r.ctx, payload); err != nil {
		r.cfg.logger().Printf("trystero: send to %s: %v", url, err)
		trymetrics.Announces.WithLabelValues(url, "error").Inc()
		return
	}
	trymetrics.Announces.WithLabelValues(url, "sent").Inc()
}
