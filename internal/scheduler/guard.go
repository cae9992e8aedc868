package scheduler

import "sync"

// Guard lets a scan-and-notify sequence run at most once per key for the
// life of the process. Nothing is persisted; a restart starts clean.
type Guard struct {
	mu   sync.Mutex
	done map[string]bool
}

func NewGuard() *Guard {
	return &Guard{done: make(map[string]bool)}
}

// Do runs fn unless key was already claimed, and reports whether fn ran.
// The key is claimed before fn starts, so concurrent callers never both
// run. If fn returns an error the claim is released so a later call can
// retry.
func (g *Guard) Do(key string, fn func() error) bool {
	g.mu.Lock()
	if g.done[key] {
		g.mu.Unlock()
		return false
	}
	g.done[key] = true
	g.mu.Unlock()

	if err := fn(); err != nil {
		g.mu.Lock()
		delete(g.done, key)
		g.mu.Unlock()
	}
	return true
}

// Done reports whether key has been claimed.
func (g *Guard) Done(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done[key]
}
