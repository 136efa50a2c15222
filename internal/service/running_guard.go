package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ExportedGenerationGuard is an exported alias so _test packages can test the guard.
type ExportedGenerationGuard = generationGuard

// generationGuard lets at most one export run per session. A second request
// while one is in flight is refused, not queued.
type generationGuard struct {
	mu      sync.Mutex
	running map[uuid.UUID]struct{}
	// idle is open while any export runs and closed when the last one ends.
	idle chan struct{}
}

// TryLock marks id as generating. It returns false if an export for id is
// already running.
func (g *generationGuard) TryLock(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[uuid.UUID]struct{})
	}
	if _, ok := g.running[id]; ok {
		return false
	}
	if len(g.running) == 0 {
		g.idle = make(chan struct{})
	}
	g.running[id] = struct{}{}
	return true
}

// Unlock must follow a TryLock that returned true.
func (g *generationGuard) Unlock(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[id]; !ok {
		return
	}
	delete(g.running, id)
	if len(g.running) == 0 {
		close(g.idle)
		g.idle = nil
	}
}

func (g *generationGuard) Running(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[id]
	return ok
}

// WaitAll blocks until every running export finishes or ctx is done.
func (g *generationGuard) WaitAll(ctx context.Context) {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()
	if idle == nil {
		return
	}
	select {
	case <-idle:
	case <-ctx.Done():
	}
}

// sessionLocks serializes mutations per session. Entries are dropped once no
// caller holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sessionLock)
	}
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
