package cart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// persister writes cart snapshots through a single goroutine. Writes are ordered and
// coalesced: when several snapshots queue up only the newest one is written.
type persister struct {
	storage Storage
	key     string
	timeout time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	pending  *State
	queued   uint64 // sequence of the newest enqueued snapshot
	written  uint64 // sequence of the newest snapshot attempted
	lastErr  error
	progress chan struct{}
	closed   bool

	wake chan struct{}
	done chan struct{}
}

func newPersister(storage Storage, key string, timeout time.Duration, logger zerolog.Logger) *persister {
	p := &persister{
		storage:  storage,
		key:      key,
		timeout:  timeout,
		logger:   logger,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue schedules s to be written and returns immediately.
func (p *persister) enqueue(s State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn().Msg("cart persister closed, mutation not persisted")
		return
	}
	defer p.mu.Unlock()

	snap := s.clone()
	p.pending = &snap
	p.queued++

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for range p.wake {
		p.drain()
	}
	p.drain()
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if p.pending == nil {
			p.mu.Unlock()
			return
		}
		s := *p.pending
		seq := p.queued
		p.pending = nil
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := writeState(ctx, p.storage, p.key, s)
		cancel()
		if err != nil {
			p.logger.Error().Err(err).Str("key", p.key).Msg("failed to persist cart")
		}

		p.mu.Lock()
		p.written = seq
		p.lastErr = err
		close(p.progress)
		p.progress = make(chan struct{})
		p.mu.Unlock()
	}
}

// flush waits until every snapshot enqueued before the call has been written and returns
// the error of the newest write.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.queued
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			err := p.lastErr
			p.mu.Unlock()
			return err
		}
		progress := p.progress
		p.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops accepting snapshots, writes whatever is pending and stops the goroutine.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.wake)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
