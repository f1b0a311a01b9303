package trystero

import (
	"crypto/ecdsa"
	"fmt"
	"sync"
)

// fakePeer is a minimal, in-memory Peer used across this package's tests in
// place of pionpeer, so tests never touch real WebRTC or a network.
type fakePeer struct {
	initiator bool

	mu        sync.Mutex
	destroyed bool
	key       *ecdsa.PublicKey
	signaled  []string

	events fakeEmitter
}

// fakePeerFactory is a PeerFactory building fakePeers. Every initiator peer
// it creates emits EventSignal with a distinct placeholder SDP during
// creation, before the factory returns; fakeEmitter replays it to handlers
// registered afterwards, as a real offerer's would once ICE gathering
// completes.
func fakePeerFactory(initiator bool, cfg RTCConfig) (Peer, error) {
	p := &fakePeer{initiator: initiator}
	if initiator {
		p.events.emit(EventSignal, fmt.Sprintf("offer-sdp-%p", p))
	}
	return p, nil
}

// failingPeerFactory always errors, for exercising makeOffers' rollback path.
func failingPeerFactory(initiator bool, cfg RTCConfig) (Peer, error) {
	return nil, fmt.Errorf("fakePeer: factory error")
}

// Signal records the incoming sdp and, as a stand-in for a real WebRTC
// handshake completing, immediately emits EventSignal (for a responder,
// producing its answer) and EventConnect.
func (p *fakePeer) Signal(sdp string) error {
	p.mu.Lock()
	p.signaled = append(p.signaled, sdp)
	initiator := p.initiator
	p.mu.Unlock()

	if !initiator {
		p.events.emit(EventSignal, "answer-sdp")
	}
	p.events.emit(EventConnect)
	return nil
}

func (p *fakePeer) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	return nil
}

func (p *fakePeer) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *fakePeer) On(event PeerEvent, fn func(args ...any))   { p.events.on(event, fn) }
func (p *fakePeer) Once(event PeerEvent, fn func(args ...any)) { p.events.once(event, fn) }

func (p *fakePeer) SetKey(pub *ecdsa.PublicKey) {
	p.mu.Lock()
	p.key = pub
	p.mu.Unlock()
}

func (p *fakePeer) Key() *ecdsa.PublicKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}

// fakeEmitter mirrors pionpeer's replay-on-late-subscribe eventEmitter at
// test scope, so fakePeer behaves the same way a real Peer does.
type fakeEmitter struct {
	mu         sync.Mutex
	onHandlers map[PeerEvent][]func(args ...any)
	onceQueue  map[PeerEvent][]func(args ...any)
	firedArgs  map[PeerEvent][]any
}

func (e *fakeEmitter) on(event PeerEvent, fn func(args ...any)) {
	e.mu.Lock()
	args, already := e.firedArgs[event]
	if e.onHandlers == nil {
		e.onHandlers = make(map[PeerEvent][]func(args ...any))
	}
	e.onHandlers[event] = append(e.onHandlers[event], fn)
	e.mu.Unlock()
	if already {
		fn(args...)
	}
}

func (e *fakeEmitter) once(event PeerEvent, fn func(args ...any)) {
	e.mu.Lock()
	if args, already := e.firedArgs[event]; already {
		e.mu.Unlock()
		fn(args...)
		return
	}
	if e.onceQueue == nil {
		e.onceQueue = make(map[PeerEvent][]func(args ...any))
	}
	e.onceQueue[event] = append(e.onceQueue[event], fn)
	e.mu.Unlock()
}

func (e *fakeEmitter) emit(event PeerEvent, args ...any) {
	e.mu.Lock()
	if e.firedArgs == nil {
		e.firedArgs = make(map[PeerEvent][]any)
	}
	if _, already := e.firedArgs[event]; !already {
		e.firedArgs[event] = args
	}
	onHandlers := append([]func(args ...any){}, e.onHandlers[event]...)
	onceHandlers := e.onceQueue[event]
	if e.onceQueue != nil {
		delete(e.onceQueue, event)
	}
	e.mu.Unlock()

	for _, fn := range onHandlers {
		fn(args...)
	}
	for _, fn := range onceHandlers {
		fn(args...)
	}
}
