package domain

import (
	"context"
	"sync"
)

// SeenJobRegistry is the growing set of fingerprints already surfaced.
// Fingerprints are registered before notification or apply, so a crash
// between registering and acting loses that job rather than repeating it.
type SeenJobRegistry struct {
	mu      sync.Mutex
	repo    SeenJobRepository
	seen    map[Fingerprint]struct{}
	pending []Fingerprint
}

// NewSeenJobRegistry creates an empty registry backed by repo.
func NewSeenJobRegistry(repo SeenJobRepository) *SeenJobRegistry {
	return &SeenJobRegistry{
		repo: repo,
		seen: make(map[Fingerprint]struct{}),
	}
}

// Load merges the persisted fingerprints into the registry.
func (r *SeenJobRegistry) Load(ctx context.Context) error {
	fps, err := r.repo.LoadSeen(ctx)
	if err != nil {
		return persistenceError(err, "load seen jobs")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fp := range fps {
		r.seen[fp] = struct{}{}
	}
	return nil
}

// Contains reports whether fp has been registered.
func (r *SeenJobRegistry) Contains(fp Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[fp]
	return ok
}

// Add registers fp and reports whether it was new.
func (r *SeenJobRegistry) Add(fp Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[fp]; ok {
		return false
	}
	r.seen[fp] = struct{}{}
	r.pending = append(r.pending, fp)
	return true
}

// Persist writes every fingerprint added since the last successful
// Persist, even when ctx is already cancelled. On failure the batch is kept
// for the next call.
func (r *SeenJobRegistry) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := r.repo.SaveSeen(ctx, r.pending); err != nil {
		return persistenceError(err, "save seen jobs")
	}
	r.pending = nil
	return nil
}

// Count returns the number of registered fingerprints.
func (r *SeenJobRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
