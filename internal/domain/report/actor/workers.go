// SPDX-License-Identifier: MIT

package actor

import (
	"context"
	"fmt"
	"sync"
)

// workerGroup tracks actor-owned goroutines (session watchers) and provides
// a bounded join on shutdown. Go refuses new work once closing.
type workerGroup struct {
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func (g *workerGroup) Go(fn func()) bool {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return false
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		fn()
	}()

	return true
}

func (g *workerGroup) CloseAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session watcher drain timeout: %w", ctx.Err())
	}
}
