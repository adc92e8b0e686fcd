package like

import (
	"strconv"
	"sync"
)

// Registry tracks toggles in flight across requests, keyed by submission
// and viewer.
type Registry struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{inFlight: make(map[string]struct{})}
}

func registryKey(submissionID int64, viewer string) string {
	return strconv.FormatInt(submissionID, 10) + ":" + viewer
}

// Acquire returns false if a toggle for the pair is already running.
func (r *Registry) Acquire(submissionID int64, viewer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := registryKey(submissionID, viewer)
	if _, busy := r.inFlight[k]; busy {
		return false
	}
	r.inFlight[k] = struct{}{}
	return true
}

func (r *Registry) Release(submissionID int64, viewer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, registryKey(submissionID, viewer))
}
