package gateway

import "sync"

// PresenceRegistry maps an identity to its live connection handle. At
// most one entry exists per identity; a reconnect overwrites the prior
// handle (last-connect-wins, no multi-device fan-out). The registry is
// owned by the Gateway and lives for the process lifetime.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		conns: make(map[string]*Client),
	}
}

// Register stores the handle for email, returning any displaced handle
// so the caller can tear it down.
func (p *PresenceRegistry) Register(email string, c *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.conns[email]
	p.conns[email] = c
	return prev
}

// Unregister removes the entry for email; no-op if absent.
func (p *PresenceRegistry) Unregister(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.conns, email)
}

// UnregisterClient removes the entry for email only if it still points
// at c. A stale handle left behind by a reconnect is not removed.
func (p *PresenceRegistry) UnregisterClient(email string, c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conns[email] != c {
		return false
	}
	delete(p.conns, email)
	return true
}

// Lookup returns the live connection handle for email, if any.
func (p *PresenceRegistry) Lookup(email string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.conns[email]
	return c, ok
}

// Snapshot returns all registered connection handles.
func (p *PresenceRegistry) Snapshot() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clients := make([]*Client, 0, len(p.conns))
	for _, c := range p.conns {
		clients = append(clients, c)
	}
	return clients
}
