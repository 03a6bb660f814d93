package sessionrpc

import (
	"sync"

	"session-gateway/config"
	"session-gateway/pkg/identity"
)

// Pool hands out one client per authenticated principal plus a shared
// anonymous client for unauthenticated reads. This keeps per-identity
// transports isolated instead of funnelling every caller through a single
// mutable client.
type Pool struct {
	cfg config.SessionService

	mu      sync.Mutex
	anon    *Client
	clients map[string]*Client
}

func NewPool(cfg config.SessionService) *Pool {
	return &Pool{
		cfg:     cfg,
		clients: make(map[string]*Client),
	}
}

// For returns the client bound to id, creating it on first use. A nil
// identity yields the shared anonymous client.
func (p *Pool) For(id *identity.Identity) SessionRPC {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id == nil {
		if p.anon == nil {
			p.anon = NewClient(p.cfg)
		}
		return p.anon
	}

	c, ok := p.clients[id.Principal]
	if !ok {
		c = NewClient(p.cfg)
		c.SetIdentity(id)
		p.clients[id.Principal] = c
	}
	return c
}

// Evict drops the client for a signed-out principal; an in-flight call on the
// evicted client fails its version check instead of returning a stale result.
func (p *Pool) Evict(principal string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[principal]; ok {
		c.SetIdentity(nil)
		delete(p.clients, principal)
	}
}
