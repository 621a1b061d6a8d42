// Package admission bounds the number of concurrently served
// connections. The policy is fail-fast: a connection arriving at
// capacity is turned away immediately rather than queued, because slow
// embedded clients holding queued sockets cause cascading timeouts long
// before queuing smooths any load.
package admission

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Controller enforces a hard ceiling on concurrent connections.
// The semaphore carries the bound; the counter exists so /status can
// report the live connection count without draining permits.
type Controller struct {
	sem    *semaphore.Weighted
	active atomic.Int64
	limit  int64
}

// New creates a Controller admitting at most limit concurrent connections.
func New(limit int) *Controller {
	return &Controller{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// TryAcquire attempts to claim a connection slot without blocking.
// On success it returns a release function and true. The release
// function is idempotent, so deferring it on every handler exit path
// (normal return, IO error, panic recovery) can never over-release.
//
// On failure it returns (nil, false); the caller must close the
// connection without reading from it.
func (c *Controller) TryAcquire() (release func(), ok bool) {
	if !c.sem.TryAcquire(1) {
		return nil, false
	}
	c.active.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.active.Add(-1)
			c.sem.Release(1)
		})
	}, true
}

// Active returns the number of outstanding, unreleased slots.
func (c *Controller) Active() int64 {
	return c.active.Load()
}

// Limit returns the configured maximum.
func (c *Controller) Limit() int64 {
	return c.limit
}
