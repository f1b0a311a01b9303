package trystero

import (
	"context"
	"fmt"
	"sync"
)

// pooledOffer pairs a pre-initialized initiator Peer with its first local
// SDP, captured exactly once via EventSignal.
type pooledOffer struct {
	id    string
	peer  Peer
	ready chan struct{} // closed once sdp is set
	sdp   string
}

// offerPool is the offerId -> pooledOffer mapping. It holds exactly
// offerPoolSize entries from the moment makeOffers returns; clean destroys
// entries in place without removing them from the map.
type offerPool struct {
	mu     sync.Mutex
	offers map[string]*pooledOffer
}

func newOfferPool() *offerPool {
	return &offerPool{offers: make(map[string]*pooledOffer, offerPoolSize)}
}

// makeOffers builds exactly offerPoolSize entries, each an initiator Peer
// whose first EventSignal is captured as a one-shot local-SDP future.
func makeOffers(factory PeerFactory, cfg RTCConfig) (*offerPool, error) {
	if factory == nil {
		return nil, fmt.Errorf("trystero: no PeerFactory configured")
	}

	pool := newOfferPool()
	for i := 0; i < offerPoolSize; i++ {
		peer, err := factory(true, cfg)
		if err != nil {
			pool.destroyAll()
			return nil, fmt.Errorf("trystero: make offer peer: %w", err)
		}

		po := &pooledOffer{id: newOfferID(), peer: peer, ready: make(chan struct{})}
		peer.Once(EventSignal, func(args ...any) {
			if len(args) > 0 {
				if sdp, ok := args[0].(string); ok {
					po.sdp = sdp
				}
			}
			close(po.ready)
		})
		pool.offers[po.id] = po
	}
	return pool, nil
}

// localSDPs awaits every pooled offer's local SDP in parallel, up to ctx's
// deadline, and returns the ones that resolved.
func (p *offerPool) localSDPs(ctx context.Context) map[string]string {
	p.mu.Lock()
	offers := make([]*pooledOffer, 0, len(p.offers))
	for _, o := range p.offers {
		offers = append(offers, o)
	}
	p.mu.Unlock()

	out := make(map[string]string, len(offers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, o := range offers {
		wg.Add(1)
		go func(o *pooledOffer) {
			defer wg.Done()
			select {
			case <-o.ready:
				mu.Lock()
				out[o.id] = o.sdp
				mu.Unlock()
			case <-ctx.Done():
			}
		}(o)
	}
	wg.Wait()
	return out
}

// get returns the pooled offer for id, if it is still in the pool.
func (p *offerPool) get(id string) (*pooledOffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.offers[id]
	return o, ok
}

// clean destroys every entry whose offerId is neither handled nor connected.
// It does not reset handled/connected; callers own those.
func (p *offerPool) clean(handled, connected map[string]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, o := range p.offers {
		if handled[id] || connected[id] {
			continue
		}
		_ = o.peer.Destroy()
	}
}

func (p *offerPool) destroyAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.offers {
		_ = o.peer.Destroy()
	}
}
