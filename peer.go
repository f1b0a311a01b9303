package trystero

import "crypto/ecdsa"

// PeerEvent names one of the small set of lifecycle events a Peer emits.
type PeerEvent string

const (
	// EventSignal fires once a local SDP (offer or answer) has been
	// produced and is ready to be signed and sent to a tracker.
	EventSignal PeerEvent = "signal"
	// EventConnect fires when the underlying WebRTC connection completes.
	EventConnect PeerEvent = "connect"
	// EventClose fires when the underlying WebRTC connection closes, for
	// any reason including failure.
	EventClose PeerEvent = "close"
)

// ICEServer mirrors the handful of RTCIceServer fields the core needs to
// pass through to a Peer untouched; it never inspects or second-guesses NAT
// traversal policy.
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// RTCConfig is the subset of WebRTC configuration the core threads through
// to PeerFactory unexamined.
type RTCConfig struct {
	ICEServers []ICEServer
}

// Peer is the opaque handle the core consumes for a prospective or
// established WebRTC connection. Implementations are expected to be
// goroutine-safe for concurrent On/Once registration and Signal/Destroy
// calls, since the core may call into a Peer from the announce loop and a
// tracker's read loop concurrently.
//
// The WebRTC peer-connection primitive itself — ICE gathering, DTLS, SCTP,
// NAT traversal — is out of scope for this package; Peer exists so the core
// never imports a concrete WebRTC library directly. See package pionpeer for
// a default implementation.
type Peer interface {
	// Signal feeds a remote SDP (offer or answer, already verified) into
	// the peer connection.
	Signal(sdp string) error
	// Destroy tears down the peer connection. Safe to call more than once.
	Destroy() error
	// Destroyed reports whether Destroy has been called.
	Destroyed() bool
	// On registers a persistent handler for event.
	On(event PeerEvent, fn func(args ...any))
	// Once registers a handler for event that fires at most once.
	Once(event PeerEvent, fn func(args ...any))
	// SetKey pins the counterparty's verified signing public key to this
	// peer. Called by the signaling handler only after the remote SDP's
	// signature has checked out.
	SetKey(pub *ecdsa.PublicKey)
	// Key returns the pinned counterparty public key, or nil if the peer
	// has not yet been signaled with a verified SDP.
	Key() *ecdsa.PublicKey
}

// PeerFactory creates a new Peer. initiator selects offerer (true, the peer
// will emit an EventSignal carrying an "offer" SDP once New completes) or
// answerer (false, an "answer" SDP) mode.
type PeerFactory func(initiator bool, cfg RTCConfig) (Peer, error)
