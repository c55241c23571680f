// Package routines runs scheduled functions on a bounded number of
// goroutines.
package routines

import "sync"

// Pool executes queued functions on a fixed number of goroutines.
type Pool struct {
	queue   chan func()
	workers sync.WaitGroup
	closing sync.Once
}

// NewPool starts size worker goroutines and returns the pool.
func NewPool(size int) *Pool {
	pool := Pool{queue: make(chan func())}

	pool.workers.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer pool.workers.Done()

			for fn := range pool.queue {
				fn()
			}
		}()
	}

	return &pool
}

// Queue schedules fn for execution.
// It blocks until a worker accepted the function.
// Calling Queue after Wait panics.
func (p *Pool) Queue(fn func()) {
	p.queue <- fn
}

// Wait blocks until all scheduled functions were executed and terminates
// the workers.
// It can be called multiple times.
func (p *Pool) Wait() {
	p.closing.Do(func() { close(p.queue) })
	p.workers.Wait()
}
