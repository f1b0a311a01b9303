// Package faketracker is an in-process WebTorrent-style signalling tracker:
// one http.Handler that accepts WebSocket connections, groups them into
// swarms by info_hash, rebroadcasts announced offers within a swarm, and
// routes each answer to the peer it names. It exists for tests that need a real tracker to dial without a
// network, and backs the cmd/trystero-tracker binary.
package faketracker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// frame is the subset of the wire protocol this tracker understands. Offer
// and Answer payloads are kept as raw JSON and passed through untouched;
// this tracker never inspects SDP content.
type frame struct {
	Action        string          `json:"action,omitempty"`
	InfoHash      string          `json:"info_hash,omitempty"`
	PeerID        string          `json:"peer_id,omitempty"`
	ToPeerID      string          `json:"to_peer_id,omitempty"`
	NumWant       int             `json:"numwant,omitempty"`
	Offers        json.RawMessage `json:"offers,omitempty"`
	OfferID       string          `json:"offer_id,omitempty"`
	Offer         json.RawMessage `json:"offer,omitempty"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	Interval      int             `json:"interval,omitempty"`
	FailureReason string          `json:"failure reason,omitempty"`
}

// conn is one accepted WebSocket, tagged with the peer_id it last announced
// under. Writes are serialised through mu since nhooyr.io/websocket forbids
// concurrent writers.
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	peerID string
}

func (c *conn) send(ctx context.Context, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Server is one tracker instance. The zero value is not usable; use New.
type Server struct {
	// AnnounceInterval, if positive, is echoed back on every announce as an
	// interval hint. Tests use this to exercise applyIntervalHint.
	AnnounceInterval int

	mu     sync.Mutex
	swarms map[string]map[*conn]bool // info_hash -> member set
}

// New returns an empty tracker.
func New() *Server {
	return &Server{swarms: make(map[string]map[*conn]bool)}
}

func (s *Server) join(infoHash string, c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.swarms[infoHash]
	if !ok {
		members = make(map[*conn]bool)
		s.swarms[infoHash] = members
	}
	members[c] = true
}

func (s *Server) leaveAll(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for infoHash, members := range s.swarms {
		delete(members, c)
		if len(members) == 0 {
			delete(s.swarms, infoHash)
		}
	}
}

func (s *Server) members(infoHash string) []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.swarms[infoHash]))
	for c := range s.swarms[infoHash] {
		out = append(out, c)
	}
	return out
}

func (s *Server) peer(infoHash, peerID string) (*conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.swarms[infoHash] {
		if c.peerID == peerID {
			return c, true
		}
	}
	return nil, false
}

// ServeHTTP implements http.Handler. Every connection is symmetric: a
// client announces, receives other members' offers, and replies with
// answers the tracker routes back to the originating peer_id.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Println("faketracker: accept:", err)
		return
	}
	c := &conn{ws: ws}
	ctx := r.Context()

	defer func() {
		s.leaveAll(c)
		ws.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.PeerID != "" {
			c.peerID = f.PeerID
		}

		switch {
		case f.Action == "announce" && len(f.Offers) > 0:
			s.join(f.InfoHash, c)
			s.broadcastOffers(ctx, f, c)
			s.sendIntervalHint(ctx, c)
		case f.Action == "announce":
			s.join(f.InfoHash, c)
			s.sendIntervalHint(ctx, c)
		case f.Answer != nil:
			s.routeAnswer(ctx, f)
		}
	}
}

// broadcastOffers fans every offer in an announce frame out to every other
// current member of the swarm, mirroring WebTorrent tracker semantics (each
// announce's offers are distributed to up to numwant peers; this in-process
// tracker has no scaling concerns so it just broadcasts to everyone else).
func (s *Server) broadcastOffers(ctx context.Context, f frame, from *conn) {
	var offers []struct {
		OfferID string          `json:"offer_id"`
		Offer   json.RawMessage `json:"offer"`
	}
	if err := json.Unmarshal(f.Offers, &offers); err != nil {
		return
	}

	for _, member := range s.members(f.InfoHash) {
		if member == from {
			continue
		}
		for _, o := range offers {
			out := frame{
				Action:   "offer",
				InfoHash: f.InfoHash,
				PeerID:   f.PeerID,
				OfferID:  o.OfferID,
				Offer:    o.Offer,
			}
			if err := member.send(ctx, out); err != nil {
				log.Println("faketracker: send offer:", err)
			}
		}
	}
}

// sendIntervalHint echoes AnnounceInterval back to a freshly-announced
// client, letting tests exercise the client's grow-only interval adaptation.
func (s *Server) sendIntervalHint(ctx context.Context, c *conn) {
	if s.AnnounceInterval <= 0 {
		return
	}
	if err := c.send(ctx, frame{Interval: s.AnnounceInterval}); err != nil {
		log.Println("faketracker: send interval:", err)
	}
}

// routeAnswer delivers an answer frame to the specific peer it names,
// rather than broadcasting it.
func (s *Server) routeAnswer(ctx context.Context, f frame) {
	target, ok := s.peer(f.InfoHash, f.ToPeerID)
	if !ok {
		return
	}
	out := frame{
		Action:   "answer",
		InfoHash: f.InfoHash,
		PeerID:   f.PeerID,
		ToPeerID: f.ToPeerID,
		OfferID:  f.OfferID,
		Answer:   f.Answer,
	}
	if err := target.send(ctx, out); err != nil {
		log.Println("faketracker: send answer:", err)
	}
}
