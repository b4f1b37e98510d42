// Package worker runs fire-and-forget work on a bounded set of goroutines.
package worker

import (
	"golang.org/x/sync/errgroup"
)

// Pool runs functions concurrently with at most limit in flight.
type Pool struct {
	g errgroup.Group
}

// NewPool creates a Pool.
//
// Precondition: limit must be >= 1.
// Postcondition: Returns a Pool that runs at most limit functions at once.
func NewPool(limit int) *Pool {
	if limit < 1 {
		panic("worker: limit must be >= 1")
	}
	p := &Pool{}
	p.g.SetLimit(limit)
	return p
}

// Go runs fn on a new goroutine, blocking while the pool is saturated.
func (p *Pool) Go(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// TryGo runs fn only if a slot is free.
//
// Postcondition: Returns false without running fn when the pool is saturated.
func (p *Pool) TryGo(fn func()) bool {
	return p.g.TryGo(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every started function has returned.
//
// Precondition: No Go or TryGo call may race with Wait.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}
