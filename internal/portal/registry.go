package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry owns one Client per client id, created on first use.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	deps    Deps
	idleTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		clients: make(map[string]*Client),
		deps:    deps,
		idleTTL: idleTTL,
		now:     time.Now,
		log:     log,
	}
}

// Get returns the client for id, creating and initializing it if needed.
func (r *Registry) Get(ctx context.Context, id string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[id]; ok {
		c.touch(r.now())
		return c, nil
	}

	c, err := newClient(ctx, id, r.deps)
	if err != nil {
		return nil, err
	}
	r.clients[id] = c
	r.log.Debug("client created", "client", id, "clients", len(r.clients))
	return c, nil
}

// Lookup returns an existing client without creating one.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle for longer than the registry's TTL and returns how
// many were evicted.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var idle []*Client
	for id, c := range r.clients {
		if c.idleSince(now) > r.idleTTL && c.Hub.Len() == 0 {
			idle = append(idle, c)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		r.log.Info("evicted idle clients", "evicted", len(idle))
	}
	return len(idle)
}

// Run sweeps on every tick until ctx is done, then closes every client.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
