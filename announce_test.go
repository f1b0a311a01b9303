package trystero

import "testing"

func newTestRoom(t *testing.T) *room {
	r := &room{
		cfg:            Config{PeerFactory: fakePeerFactory},
		connectedPeers: make(map[string]bool),
		handledOffers:  make(map[string]bool),
		announceSecs:   defaultAnnounceSecs,
		onPeerConnect:  func(Peer, string) {},
	}
	t.Cleanup(func() {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
	})
	return r
}

func TestApplyIntervalHintGrowsOnly(t *testing.T) {
	r := newTestRoom(t)

	r.applyIntervalHint(20) // below current, ignored
	if r.announceSecs != defaultAnnounceSecs {
		t.Errorf("announceSecs = %d after a shrinking hint, want unchanged", r.announceSecs)
	}

	r.applyIntervalHint(60)
	if r.announceSecs != 60 {
		t.Errorf("announceSecs = %d, want 60", r.announceSecs)
	}

	r.applyIntervalHint(200) // above max, ignored
	if r.announceSecs != 60 {
		t.Errorf("announceSecs = %d after an over-max hint, want unchanged at 60", r.announceSecs)
	}

	r.applyIntervalHint(maxAnnounceSecs)
	if r.announceSecs != maxAnnounceSecs {
		t.Errorf("announceSecs = %d, want %d", r.announceSecs, maxAnnounceSecs)
	}
}

func TestApplyIntervalHintNoopWhenClosed(t *testing.T) {
	r := newTestRoom(t)
	r.closed = true
	r.applyIntervalHint(90)
	if r.announceSecs != defaultAnnounceSecs {
		t.Errorf("applyIntervalHint changed announceSecs on a closed room")
	}
}
