package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/drakos74/signal-router/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ClosedErr is returned when submitting to a closed pool.
var ClosedErr = errors.New("pool closed")

// Evaluator evaluates a single signal.
type Evaluator interface {
	Evaluate(ctx context.Context, signal model.Signal) Outcome
}

// Pool runs evaluations on a bounded number of workers.
type Pool struct {
	evaluator Evaluator
	sem       *semaphore.Weighted
	wg        *sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
	lock      *sync.RWMutex
}

// NewPool creates a new pool with the given number of workers.
func NewPool(evaluator Evaluator, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		evaluator: evaluator,
		sem:       semaphore.NewWeighted(int64(workers)),
		wg:        new(sync.WaitGroup),
		ctx:       ctx,
		cancel:    cancel,
		lock:      new(sync.RWMutex),
	}
}

// Submit waits for a free worker and starts the evaluation.
// The evaluation is detached from the given context, which only bounds the wait for a worker.
// The returned channel delivers exactly one outcome.
func (p *Pool) Submit(ctx context.Context, signal model.Signal) (<-chan Outcome, error) {
	p.lock.RLock()
	if p.closed {
		p.lock.RUnlock()
		return nil, ClosedErr
	}
	p.wg.Add(1)
	p.lock.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return nil, err
	}
	out := make(chan Outcome, 1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		out <- p.evaluator.Evaluate(p.ctx, signal)
		close(out)
	}()
	return out, nil
}

// Close stops accepting signals and waits for the running evaluations.
// If the context is done first, the running evaluations are cancelled.
func (p *Pool) Close(ctx context.Context) error {
	p.lock.Lock()
	p.closed = true
	p.lock.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		log.Info().Msg("worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		log.Warn().Err(ctx.Err()).Msg("worker pool closed before draining")
		return ctx.Err()
	}
}
