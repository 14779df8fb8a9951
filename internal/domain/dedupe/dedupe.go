// Package dedupe tracks pumps that already have a curve regeneration pending,
// so repeated catalog writes collapse into a single queued job.
package dedupe

import (
	"context"
	"sync"
)

// Pending is a set of in-flight keys.
type Pending interface {
	// Claim records id as pending. It returns false if id was already pending.
	Claim(ctx context.Context, id string) bool

	// Release removes id so it can be claimed again. Call it after the job
	// finishes or when it could not be enqueued.
	Release(ctx context.Context, id string)

	// Has reports whether id is pending.
	Has(id string) bool

	Size() int
}

type pendingSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
	hint int
}

// NewPending creates an empty pending set.
func NewPending(opts ...Option) Pending {
	p := &pendingSet{}
	for _, opt := range opts {
		opt(p)
	}
	p.keys = make(map[string]struct{}, p.hint)
	return p
}

func (p *pendingSet) Claim(_ context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.keys[id]; ok {
		return false
	}
	p.keys[id] = struct{}{}
	return true
}

func (p *pendingSet) Release(_ context.Context, id string) {
	p.mu.Lock()
	delete(p.keys, id)
	p.mu.Unlock()
}

func (p *pendingSet) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[id]
	return ok
}

func (p *pendingSet) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
