package trystero

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"nhooyr.io/websocket"
)

// socketHandler is invoked with the raw bytes of every inbound frame on a
// trackerSocket; handlers self-filter by InfoHash.
type socketHandler func(data []byte)

// socketState mirrors the three WebSocket readyStates the announce loop
// cares about: CLOSED/CLOSING collapse to socketClosed since both mean "not
// usable, needs a fresh dial."
type socketState int

const (
	socketClosed socketState = iota
	socketConnecting
	socketOpen
)

// trackerSocket owns one WebSocket connection to a single tracker URL,
// shared process-wide across every namespace announcing through it.
type trackerSocket struct {
	url string

	mu        sync.Mutex
	state     socketState
	conn      *websocket.Conn
	listeners map[string]socketHandler // infoHash -> handler
}

func newTrackerSocket(url string) *trackerSocket {
	return &trackerSocket{url: url, listeners: make(map[string]socketHandler)}
}

// socketRegistry is the process-wide url -> *trackerSocket map.
type socketRegistry struct {
	mu      sync.Mutex
	sockets map[string]*trackerSocket
}

var registry = &socketRegistry{sockets: make(map[string]*trackerSocket)}

// ensure returns the socket for url, creating an unconnected one on first
// use, and registers handler under infoHash. It never dials; callers decide
// whether to dial based on readyState.
func (r *socketRegistry) ensure(url, infoHash string, handler socketHandler) *trackerSocket {
	r.mu.Lock()
	ts, ok := r.sockets[url]
	if !ok {
		ts = newTrackerSocket(url)
		r.sockets[url] = ts
	}
	r.mu.Unlock()

	ts.mu.Lock()
	ts.listeners[infoHash] = handler
	ts.mu.Unlock()
	return ts
}

// releaseListener removes infoHash's handler from url's socket, if any. The
// socket itself is left open — other namespaces may share it.
func (r *socketRegistry) releaseListener(url, infoHash string) {
	r.mu.Lock()
	ts := r.sockets[url]
	r.mu.Unlock()
	if ts == nil {
		return
	}
	ts.mu.Lock()
	delete(ts.listeners, infoHash)
	ts.mu.Unlock()
}

func (ts *trackerSocket) readyState() socketState {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.state
}

// dial opens the WebSocket connection and starts its read loop. It is a
// no-op if the socket is already CONNECTING or OPEN, so callers may call it
// unconditionally once they've decided a dial is warranted.
func (ts *trackerSocket) dial(ctx context.Context) error {
	ts.mu.Lock()
	if ts.state != socketClosed {
		ts.mu.Unlock()
		return nil
	}
	ts.state = socketConnecting
	ts.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, ts.url, nil)
	ts.mu.Lock()
	if err != nil {
		ts.state = socketClosed
		ts.mu.Unlock()
		return fmt.Errorf("trystero: dial %s: %w", ts.url, err)
	}
	ts.conn = conn
	ts.state = socketOpen
	ts.mu.Unlock()

	go ts.readLoop()
	return nil
}

// readLoop dispatches every inbound frame to every handler currently
// registered for this socket; handlers self-filter by infoHash.
func (ts *trackerSocket) readLoop() {
	for {
		ts.mu.Lock()
		conn := ts.conn
		ts.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(context.Background())
		if err != nil {
			ts.mu.Lock()
			if ts.conn == conn {
				ts.conn = nil
				ts.state = socketClosed
			}
			ts.mu.Unlock()
			return
		}

		ts.mu.Lock()
		handlers := make([]socketHandler, 0, len(ts.listeners))
		for _, h := range ts.listeners {
			handlers = append(handlers, h)
		}
		ts.mu.Unlock()

		for _, h := range handlers {
			h(data)
		}
	}
}

func (ts *trackerSocket) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("trystero: marshal frame: %w", err)
	}

	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("trystero: socket %s is not open", ts.url)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
