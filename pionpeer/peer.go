// Package pionpeer is the default trystero.Peer implementation, wrapping
// pion/webrtc/v3's PeerConnection and a single DataChannel behind a small
// event-driven handle.
package pionpeer

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"

	trystero "github.com/expenses/trystero"
)

// dataChannelLabel matches every Peer created by this package; trystero's
// core never inspects channel labels, so a single well-known name is enough.
const dataChannelLabel = "data"

// rtcAPI is shared process-wide. DetachDataChannels is required to use
// DataChannel.Detach.
var rtcAPI *webrtc.API

func init() {
	s := webrtc.SettingEngine{}
	s.DetachDataChannels()
	rtcAPI = webrtc.NewAPI(webrtc.WithSettingEngine(s))
}

// peer implements trystero.Peer. initiator peers create the offer and expect
// Signal to later deliver an answer; responder peers expect Signal to
// deliver an offer and themselves produce the answer.
type peer struct {
	initiator bool

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	destroyed bool
	key       *ecdsa.PublicKey

	events eventEmitter
}

// New builds a trystero.Peer backed by pion/webrtc/v3. It satisfies
// trystero.PeerFactory's signature; Join does not fall back to it when
// Config.PeerFactory is nil.
func New(initiator bool, cfg trystero.RTCConfig) (trystero.Peer, error) {
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := rtcAPI.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("pionpeer: new peer connection: %w", err)
	}

	p := &peer{initiator: initiator, pc: pc}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		switch state {
		case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
			p.events.emit(trystero.EventClose)
		}
	})

	if initiator {
		dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("pionpeer: create data channel: %w", err)
		}
		p.wireDataChannel(dc)

		offer, err := pc.CreateOffer(nil)
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("pionpeer: create offer: %w", err)
		}
		gatherComplete := webrtc.GatheringCompletePromise(pc)
		if err := pc.SetLocalDescription(offer); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("pionpeer: set local description: %w", err)
		}
		go func() {
			<-gatherComplete
			p.events.emit(trystero.EventSignal, pc.LocalDescription().SDP)
		}()
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			p.mu.Lock()
			p.dc = dc
			p.mu.Unlock()
			p.wireDataChannel(dc)
		})
	}

	return p, nil
}

func (p *peer) wireDataChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.events.emit(trystero.EventConnect)
	})
	dc.OnClose(func() {
		p.events.emit(trystero.EventClose)
	})
}

// Signal feeds the remote SDP in. An initiator peer only ever receives an
// answer; a responder peer only ever receives an offer, to which it replies
// by creating and locally setting an answer, then emitting EventSignal with
// that answer's SDP.
func (p *peer) Signal(sdp string) error {
	p.mu.Lock()
	pc := p.pc
	initiator := p.initiator
	p.mu.Unlock()
	if pc == nil {
		return fmt.Errorf("pionpeer: peer is destroyed")
	}

	if initiator {
		desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
		if err := pc.SetRemoteDescription(desc); err != nil {
			return fmt.Errorf("pionpeer: set remote description (answer): %w", err)
		}
		return nil
	}

	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("pionpeer: set remote description (offer): %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("pionpeer: create answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("pionpeer: set local description: %w", err)
	}
	go func() {
		<-gatherComplete
		p.events.emit(trystero.EventSignal, pc.LocalDescription().SDP)
	}()
	return nil
}

func (p *peer) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	pc := p.pc
	dc := p.dc
	p.mu.Unlock()

	if dc != nil {
		_ = dc.Close()
	}
	if pc != nil {
		return pc.Close()
	}
	return nil
}

func (p *peer) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *peer) On(event trystero.PeerEvent, fn func(args ...any)) {
	p.events.on(event, fn)
}

func (p *peer) Once(event trystero.PeerEvent, fn func(args ...any)) {
	p.events.once(event, fn)
}

func (p *peer) SetKey(pub *ecdsa.PublicKey) {
	p.mu.Lock()
	p.key = pub
	p.mu.Unlock()
}

func (p *peer) Key() *ecdsa.PublicKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}
