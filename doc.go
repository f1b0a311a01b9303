// Package trystero implements the peer-discovery and signaling core of a
// serverless, browser-to-browser mesh-networking library. It joins a
// namespace by using a pool of BitTorrent-style WebSocket trackers as a
// rendezvous channel, exchanges authenticated WebRTC session descriptions
// with other participants announcing the same namespace, and hands back a
// connected, verified Peer to the caller.
//
// The WebRTC peer-connection primitive itself is treated as an opaque Peer
// (see Peer and PeerFactory); package pionpeer provides a default
// implementation over pion/webrtc. SDP signing and room-password key
// derivation live in package sdpcrypto.
package trystero
