// Package memory contains an in-memory publisher for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/dropscout/internal/drops"
)

// Publisher records published threads and hands out sequential root ids.
type Publisher struct {
	mu      sync.RWMutex
	threads []drops.Thread
	seq     int
	failFor map[int]error
}

var _ drops.Publisher = (*Publisher)(nil)

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{failFor: make(map[int]error)}
}

// FailOn makes the n-th publish attempt (1-based) return err.
func (p *Publisher) FailOn(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failFor[n] = err
}

// PublishThread records the thread and returns a pseudo root id.
func (p *Publisher) PublishThread(_ context.Context, thread drops.Thread) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	if err, ok := p.failFor[p.seq]; ok {
		return "", fmt.Errorf("%w: %w", drops.ErrPublish, err)
	}
	p.threads = append(p.threads, thread)
	return fmt.Sprintf("memory-%d", p.seq), nil
}

// Threads returns the successfully published threads.
func (p *Publisher) Threads() []drops.Thread {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]drops.Thread, len(p.threads))
	copy(out, p.threads)
	return out
}

// Attempts returns how many publishes were tried, including failures.
func (p *Publisher) Attempts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seq
}
