package gallery

import "sync"

// pathLocks enforces single-writer-per-photo discipline. Acquisition is
// fail-fast: a contended path reports busy instead of blocking, so edits
// to unrelated photos never wait on each other.
type pathLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newPathLocks() *pathLocks {
	return &pathLocks{held: make(map[string]struct{})}
}

// tryAcquire claims path for the caller. It returns false when another
// edit for the same path is already in flight.
func (l *pathLocks) tryAcquire(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[path]; busy {
		return false
	}
	l.held[path] = struct{}{}
	return true
}

// release frees path for the next writer.
func (l *pathLocks) release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, path)
}
