package rates

import (
	"context"
	"sync"
	"time"
)

// Result is one completed preview lookup tagged with the generation that
// requested it.
type Result struct {
	Generation uint64
	Resolution Resolution
	Err        error
}

// Previewer debounces rate lookups triggered by rapid field edits. Each
// Submit restarts a fixed quiet period and bumps a monotonic generation;
// only the lookup issued for the newest generation may deliver a result.
// Superseded lookups are discarded on arrival, never cancelled mid-flight.
type Previewer struct {
	resolver *Resolver
	quiet    time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	results chan Result
}

const DefaultQuietPeriod = 300 * time.Millisecond

func NewPreviewer(resolver *Resolver, quiet time.Duration) *Previewer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Previewer{
		resolver: resolver,
		quiet:    quiet,
		results:  make(chan Result, 1),
	}
}

// Results delivers fresh preview resolutions. Stale generations never appear
// here.
func (p *Previewer) Results() <-chan Result {
	return p.results
}

// Submit schedules a lookup for req after the quiet period. A newer Submit
// before the period elapses supersedes this one entirely.
func (p *Previewer) Submit(ctx context.Context, req Request) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.quiet, func() {
		p.resolve(ctx, gen, req)
	})
	return gen
}

func (p *Previewer) resolve(ctx context.Context, gen uint64, req Request) {
	if p.Stale(gen) {
		return // superseded before the lookup even started
	}
	res, err := p.resolver.Resolve(ctx, req)
	if p.Stale(gen) {
		return // superseded while in flight; discard, do not apply
	}

	// Drop an undelivered older result rather than blocking.
	select {
	case <-p.results:
	default:
	}
	p.results <- Result{Generation: gen, Resolution: res, Err: err}
}

// Redeliver puts an unconsumed result back for its rightful waiter. Needed
// when concurrent readers of Results race and one drains another's delivery.
// Dropped if a fresher result already occupies the slot.
func (p *Previewer) Redeliver(res Result) {
	select {
	case p.results <- res:
	default:
	}
}

// Stale reports whether gen has been superseded by a newer Submit.
func (p *Previewer) Stale(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen != p.gen
}

// Guard tracks the newest request token per key so that independent callers
// (one per edited form, keyed by session) can discard superseded lookups.
// Tokens are client-issued and monotonic per key.
type Guard struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewGuard() *Guard {
	return &Guard{latest: make(map[string]uint64)}
}

// Register records token as seen for key and reports whether it is the
// newest. An older token registers as already superseded.
func (g *Guard) Register(key string, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token < g.latest[key] {
		return false
	}
	g.latest[key] = token
	return true
}

// Stale reports whether a newer token has been registered for key since.
func (g *Guard) Stale(key string, token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return token < g.latest[key]
}
