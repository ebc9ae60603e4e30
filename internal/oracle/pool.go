package oracle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Pool holds ordered candidate hosts and caches the first usable one.
// Acquire revalidates the cached host before reuse and rescans when it has
// gone away, mirroring the lifecycle of a borrowed execution context.
type Pool struct {
	mu     sync.Mutex
	hosts  []Host
	active Host
	loaded map[string]bool // host id -> capability loaded this lifetime
}

// NewPool creates a Pool over the given candidate hosts, in preference order.
func NewPool(hosts ...Host) *Pool {
	return &Pool{hosts: hosts, loaded: make(map[string]bool)}
}

// Acquire returns a usable host, preferring the cached one. It returns
// ErrNoUsableHost when no candidate qualifies.
func (p *Pool) Acquire(ctx context.Context) (Host, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		if p.active.Status() == StatusReady {
			return p.active, nil
		}
		// Cached host went away; its capability load no longer counts.
		slog.Debug("oracle: cached host unloaded, rescanning", "host", p.active.ID())
		delete(p.loaded, p.active.ID())
		p.active = nil
	}

	for _, h := range p.hosts {
		if !isHTTPOrigin(h.Origin()) {
			continue
		}
		if h.Status() != StatusReady {
			continue
		}
		caps, err := h.Capabilities(ctx)
		if err != nil {
			slog.Debug("oracle: capability check failed", "host", h.ID(), "err", err)
			continue
		}
		if caps.Availability == Unavailable {
			continue
		}
		if !p.loaded[h.ID()] {
			if err := h.Load(ctx); err != nil {
				slog.Debug("oracle: capability load failed", "host", h.ID(), "err", err)
				continue
			}
			p.loaded[h.ID()] = true
		}
		p.active = h
		slog.Info("oracle: using host", "host", h.ID(), "origin", h.Origin())
		return h, nil
	}

	return nil, ErrNoUsableHost
}

// Invalidate drops the cached host so the next Acquire rescans.
func (p *Pool) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		delete(p.loaded, p.active.ID())
		p.active = nil
	}
}

func isHTTPOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")
}
