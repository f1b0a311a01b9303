package trystero

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/expenses/trystero/internal/faketracker"
	"github.com/expenses/trystero/sdpcrypto"
)

func wsURL(t *testing.T, httpURL string) string {
	t.Helper()
	if strings.HasPrefix(httpURL, "http://") {
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return "wss://" + strings.TrimPrefix(httpURL, "https://")
}

func validConfig(ns string, tracker string) Config {
	priv, err := sdpcrypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return Config{
		AppID:       "join-test-app",
		SigningKey:  priv,
		TrackerURLs: []string{tracker},
		PeerFactory: fakePeerFactory,
	}
}

func TestJoinValidatesConfig(t *testing.T) {
	key, _ := sdpcrypto.GenerateKey()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing AppID", Config{SigningKey: key, PeerFactory: fakePeerFactory, TrackerURLs: []string{"wss://x"}}},
		{"missing SigningKey", Config{AppID: "a", PeerFactory: fakePeerFactory, TrackerURLs: []string{"wss://x"}}},
		{"missing PeerFactory", Config{AppID: "a", SigningKey: key, TrackerURLs: []string{"wss://x"}}},
	}
	for _, c := range cases {
		if _, err := Join(context.Background(), c.cfg, "ns-"+c.name); err == nil {
			t.Errorf("%s: Join succeeded, want an error", c.name)
		}
	}
}

func TestJoinRejectsEmptyTrackerList(t *testing.T) {
	saved := DefaultTrackerURLs
	DefaultTrackerURLs = nil
	defer func() { DefaultTrackerURLs = saved }()

	key, _ := sdpcrypto.GenerateKey()
	cfg := Config{AppID: "a", SigningKey: key, PeerFactory: fakePeerFactory}
	if _, err := Join(context.Background(), cfg, "ns-empty-trackers"); err != ErrEmptyTrackers {
		t.Errorf("Join error = %v, want ErrEmptyTrackers", err)
	}
}

func TestJoinRejectsDoubleOccupancy(t *testing.T) {
	cfg := validConfig("double-occupancy", "wss://double-occupancy.invalid")

	room, err := Join(context.Background(), cfg, "double-occupancy")
	if err != nil {
		t.Fatalf("first Join: %v", err)
	}
	defer room.Leave()

	if _, err := Join(context.Background(), cfg, "double-occupancy"); err != ErrAlreadyJoined {
		t.Errorf("second Join error = %v, want ErrAlreadyJoined", err)
	}
}

func TestJoinLeaveIsIdempotentAndFreesNamespace(t *testing.T) {
	cfg := validConfig("leave-frees-ns", "wss://leave-frees-ns.invalid")

	room, err := Join(context.Background(), cfg, "leave-frees-ns")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	room.Leave()
	room.Leave() // must not panic or double-free

	if _, err := Join(context.Background(), cfg, "leave-frees-ns"); err != nil {
		t.Errorf("re-Join after Leave: %v", err)
	}
}

// TestAnnounceHandshakeReachesOnPeerJoin drives a real websocket connection
// against a real faketracker server, playing the role of a remote peer: it
// joins the swarm, receives one of the room's broadcast offers, signs and
// sends back an answer, and expects the room's OnPeerJoin callback to fire.
// The room's own Peer is a fakePeer — only the tracker transport and the
// signaling logic (registry, announce, handleAnswer, key pinning) are real.
func TestAnnounceHandshakeReachesOnPeerJoin(t *testing.T) {
	tracker := faketracker.New()
	tracker.AnnounceInterval = 100 // also doubles as a processed-announce ack below
	srv := httptest.NewServer(tracker)
	defer srv.Close()
	trackerURL := wsURL(t, srv.URL)

	const appID, ns = "join-test-app", "handshake-ns"
	infoHash := InfoHash(appID, ns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	remote, _, err := websocket.Dial(ctx, trackerURL, nil)
	if err != nil {
		t.Fatalf("dial tracker: %v", err)
	}
	defer remote.Close(websocket.StatusNormalClosure, "done")

	const remotePeerID = "remote-peer"
	if err := writeJSON(ctx, remote, frame{Action: "announce", InfoHash: infoHash, PeerID: remotePeerID}); err != nil {
		t.Fatalf("remote announce: %v", err)
	}
	// Wait for the tracker's interval-hint ack, so the remote is provably in
	// the swarm before the room announces its offers.
	if _, data, err := remote.Read(ctx); err != nil {
		t.Fatalf("remote read ack: %v", err)
	} else {
		var ack frame
		if err := json.Unmarshal(data, &ack); err != nil || ack.Interval == 0 {
			t.Fatalf("remote announce ack = %q, want an interval hint", data)
		}
	}

	cfg := Config{AppID: appID, SigningKey: mustKey(t), TrackerURLs: []string{trackerURL}, PeerFactory: fakePeerFactory}

	connected := make(chan string, 1)
	room, err := Join(ctx, cfg, ns)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer room.Leave()
	room.OnPeerJoin(func(peer Peer, peerID string) { connected <- peerID })

	var offerFrame frame
	for {
		_, data, err := remote.Read(ctx)
		if err != nil {
			t.Fatalf("remote read: %v", err)
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Action == "offer" && f.Offer != nil {
			offerFrame = f
			break
		}
	}

	remoteKey := mustKey(t)
	signedAnswer, err := sdpcrypto.Sign(remoteKey, "answer-sdp-from-remote")
	if err != nil {
		t.Fatalf("sign answer: %v", err)
	}
	answer := frame{
		Action:   "answer",
		InfoHash: infoHash,
		PeerID:   remotePeerID,
		ToPeerID: SelfID,
		OfferID:  offerFrame.OfferID,
		Answer:   &sdpPayload{Type: "answer", SDP: signedAnswer},
	}
	if err := writeJSON(ctx, remote, answer); err != nil {
		t.Fatalf("remote send answer: %v", err)
	}

	select {
	case peerID := <-connected:
		if peerID != remotePeerID {
			t.Errorf("OnPeerJoin peerID = %q, want %q", peerID, remotePeerID)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for OnPeerJoin")
	}
}

func writeJSON(ctx context.Context, c *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := sdpcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return k
}
