package pionpeer

import (
	"sync"

	trystero "github.com/expenses/trystero"
)

// eventEmitter is a minimal On/Once/emit pub-sub, replaying an event's first
// occurrence to any handler that subscribes after it already fired. That
// replay matters here: makeOffers calls the PeerFactory and only registers
// its Once(EventSignal, ...) handler afterwards, by which point ICE
// gathering may already have completed on a fast loopback connection.
type eventEmitter struct {
	mu         sync.Mutex
	onHandlers map[trystero.PeerEvent][]func(args ...any)
	onceQueue  map[trystero.PeerEvent][]func(args ...any)
	firedArgs  map[trystero.PeerEvent][]any
}

func (e *eventEmitter) on(event trystero.PeerEvent, fn func(args ...any)) {
	e.mu.Lock()
	args, already := e.firedArgs[event]
	if e.onHandlers == nil {
		e.onHandlers = make(map[trystero.PeerEvent][]func(args ...any))
	}
	e.onHandlers[event] = append(e.onHandlers[event], fn)
	e.mu.Unlock()
	if already {
		fn(args...)
	}
}

func (e *eventEmitter) once(event trystero.PeerEvent, fn func(args ...any)) {
	e.mu.Lock()
	if args, already := e.firedArgs[event]; already {
		e.mu.Unlock()
		fn(args...)
		return
	}
	if e.onceQueue == nil {
		e.onceQueue = make(map[trystero.PeerEvent][]func(args ...any))
	}
	e.onceQueue[event] = append(e.onceQueue[event], fn)
	e.mu.Unlock()
}

func (e *eventEmitter) emit(event trystero.PeerEvent, args ...any) {
	e.mu.Lock()
	if e.firedArgs == nil {
		e.firedArgs = make(map[trystero.PeerEvent][]any)
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
