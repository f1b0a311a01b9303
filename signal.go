package trystero

import (
	"encoding/json"
	"errors"

	"github.com/expenses/trystero/sdpcrypto"
	"github.com/expenses/trystero/trymetrics"
)

// handleFrame is the entry point for every byte slice a trackerSocket
// delivers to this room's listener. It filters by info_hash and
// self-origin before dispatching to the offer/answer branches.
func (r *room) handleFrame(url string, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		trymetrics.FrameErrors.Inc()
		r.cfg.logger().Printf("trystero: %v: %v", ErrBadFrame, err)
		return
	}

	if f.InfoHash != "" && f.InfoHash != r.infoHash {
		return
	}
	if f.PeerID != "" && f.PeerID == SelfID {
		return
	}

	if f.FailureReason != "" {
		r.cfg.logger().Printf("trystero: %v: tracker %s: %s", ErrTrackerFailure, url, f.FailureReason)
		return
	}

	if f.Interval > 0 {
		r.applyIntervalHint(f.Interval)
	}

	switch {
	case f.Offer != nil:
		r.handleOffer(url, f)
	case f.Answer != nil:
		r.handleAnswer(url, f)
	}
}

// handleOffer runs the responder path: verify the signed SDP, and on
// success spin up an answerer Peer, pin the verified key, signal
// it with the remote offer, and send the resulting answer back to the same
// tracker once it is itself signed.
func (r *room) handleOffer(url string, f frame) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	alreadyHandled := r.handledOffers[f.OfferID]
	alreadyConnected := r.connectedPeers[f.PeerID]
	r.mu.Unlock()
	if alreadyHandled || alreadyConnected || f.OfferID == "" {
		return
	}

	sdp, pub, err := sdpcrypto.Verify(f.Offer.SDP)
	if err != nil {
		trymetrics.VerifyFailures.WithLabelValues(classifyVerifyErr(err)).Inc()
		r.cfg.logger().Printf("trystero: verify offer %s: %v", f.OfferID, err)
		return
	}

	peer, err := r.cfg.PeerFactory(false, r.cfg.RTCConfig)
	if err != nil {
		r.cfg.logger().Printf("trystero: make answer peer: %v", err)
		return
	}

	// Re-check closed, connectedPeers, and handledOffers after the
	// verify/factory suspension points: Leave may have run, another
	// offer/answer from the same peerId may have already connected, or a
	// duplicate of this offer from another tracker may have been handled,
	// while we were off doing crypto and I/O (testable property S6).
	r.mu.Lock()
	if r.closed || r.connectedPeers[f.PeerID] || r.handledOffers[f.OfferID] {
		r.mu.Unlock()
		_ = peer.Destroy()
		return
	}
	r.handledOffers[f.OfferID] = true
	r.mu.Unlock()

	peer.SetKey(pub)
	peerID := f.PeerID
	offerID := f.OfferID

	peer.Once(EventSignal, func(args ...any) {
		if len(args) == 0 {
			return
		}
		answerSDP, ok := args[0].(string)
		if !ok {
			return
		}
		signed, err := sdpcrypto.Sign(r.cfg.SigningKey, answerSDP)
		if err != nil {
			r.cfg.logger().Printf("trystero: sign answer: %v", err)
			return
		}
		reply := frame{
			Action:   "answer",
			InfoHash: r.infoHash,
			PeerID:   SelfID,
			ToPeerID: peerID,
			OfferID:  offerID,
			Answer:   &sdpPayload{Type: "answer", SDP: signed},
		}
		ts := registry.ensure(url, r.infoHash, func(data []byte) { r.handleFrame(url, data) })
		if err := ts.send(r.ctx, reply); err != nil {
			r.cfg.logger().Printf("trystero: send answer to %s: %v", url, err)
		}
	})

	peer.On(EventConnect, func(args ...any) {
		r.onConnect(peer, peerID, offerID)
	})
	peer.On(EventClose, func(args ...any) {
		r.onDisconnect(peerID)
	})

	if err := peer.Signal(sdp); err != nil {
		r.cfg.logger().Printf("trystero: signal offer %s: %v", f.OfferID, err)
		_ = peer.Destroy()
	}
}

// handleAnswer runs the initiator path: look the offer_id up in the
// current offer pool, verify the signed SDP, pin the key, and
// signal the already-pooled initiator Peer.
func (r *room) handleAnswer(url string, f frame) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	pool := r.pool
	alreadyHandled := r.handledOffers[f.OfferID]
	alreadyConnected := r.connectedPeers[f.PeerID]
	r.mu.Unlock()
	if pool == nil || alreadyHandled || alreadyConnected || f.OfferID == "" {
		return
	}

	po, ok := pool.get(f.OfferID)
	if !ok || po.peer.Destroyed() {
		return
	}

	sdp, pub, err := sdpcrypto.Verify(f.Answer.SDP)
	if err != nil {
		trymetrics.VerifyFailures.WithLabelValues(classifyVerifyErr(err)).Inc()
		r.cfg.logger().Printf("trystero: verify answer %s: %v", f.OfferID, err)
		return
	}

	// Re-check closed, connectedPeers, handledOffers, and the pooled peer's
	// destroyed state after the verify suspension point: Leave, a concurrent
	// connect, a duplicate of this answer from another tracker, or a pool
	// clean may all have happened while we were off verifying.
	r.mu.Lock()
	if r.closed || r.connectedPeers[f.PeerID] || r.handledOffers[f.OfferID] {
		r.mu.Unlock()
		return
	}
	r.handledOffers[f.OfferID] = true
	r.mu.Unlock()

	if po.peer.Destroyed() {
		return
	}

	po.peer.SetKey(pub)
	peerID := f.PeerID
	offerID := f.OfferID

	po.peer.On(EventConnect, func(args ...any) {
		r.onConnect(po.peer, peerID, offerID)
	})
	po.peer.On(EventClose, func(args ...any) {
		r.onDisconnect(peerID)
	})

	if err := po.peer.Signal(sdp); err != nil {
		r.cfg.logger().Printf("trystero: signal answer %s: %v", f.OfferID, err)
	}
}

// onConnect marks both the peerId and offerId as connected, so a later
// pool clean never destroys a live connection either by its peer or offer
// identity, and invokes the upper layer's join callback.
func (r *room) onConnect(peer Peer, peerID, offerID string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.connectedPeers[peerID] = true
	r.connectedPeers[offerID] = true
	cb := r.onPeerConnect
	r.mu.Unlock()

	trymetrics.PeersConnectedTotal.Inc()
	trymetrics.ConnectedGauge.Inc()
	cb(peer, peerID)
}

func (r *room) onDisconnect(peerID string) {
	r.mu.Lock()
	wasConnected := r.connectedPeers[peerID]
	delete(r.connectedPeers, peerID)
	r.mu.Unlock()

	if wasConnected {
		trymetrics.ConnectedGauge.Dec()
	}
}

// classifyVerifyErr maps a sdpcrypto verification error to a short label for
// the VerifyFailures metric.
func classifyVerifyErr(err error) string {
	switch {
	case errors.Is(err, sdpcrypto.ErrUnverified):
		return "unverified"
	case errors.Is(err, sdpcrypto.ErrBadEnvelope):
		return "bad_envelope"
	default:
		return "other"
	}
}
