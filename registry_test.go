package trystero

import (
	"testing"
)

func TestTrackerSocketStartsClosed(t *testing.T) {
	ts := newTrackerSocket("wss://example.invalid")
	if got := ts.readyState(); got != socketClosed {
		t.Errorf("fresh trackerSocket readyState = %v, want socketClosed", got)
	}
}

func TestRegistryEnsureReusesSocketPerURL(t *testing.T) {
	url := "wss://registry-test.invalid/one"
	a := registry.ensure(url, "hash-a", func([]byte) {})
	b := registry.ensure(url, "hash-b", func([]byte) {})
	if a != b {
		t.Errorf("ensure returned distinct sockets for the same url")
	}

	a.mu.Lock()
	n := len(a.listeners)
	a.mu.Unlock()
	if n != 2 {
		t.Errorf("socket has %d listeners, want 2", n)
	}

	registry.releaseListener(url, "hash-a")
	a.mu.Lock()
	_, stillThere := a.listeners["hash-a"]
	_, other := a.listeners["hash-b"]
	a.mu.Unlock()
	if stillThere {
		t.Errorf("releaseListener did not remove hash-a's listener")
	}
	if !other {
		t.Errorf("releaseListener removed an unrelated listener")
	}
}

func TestRegistryEnsureIsolatesDistinctURLs(t *testing.T) {
	a := registry.ensure("wss://registry-test.invalid/two", "hash", func([]byte) {})
	b := registry.ensure("wss://registry-test.invalid/three", "hash", func([]byte) {})
	if a == b {
		t.Errorf("ensure returned the same socket for two different urls")
	}
}
