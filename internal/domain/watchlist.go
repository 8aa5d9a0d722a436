package domain

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// WatchListStore owns the watch criteria. Every mutation is persisted
// before it becomes visible; a failed write leaves the list unchanged.
type WatchListStore struct {
	mu        sync.Mutex
	repo      WatchRepository
	platforms []string
	items     []WatchCriteria

	now   func() time.Time
	newID func() string
}

// NewWatchListStore creates a store that accepts the given platform ids.
func NewWatchListStore(repo WatchRepository, platforms []string) *WatchListStore {
	return &WatchListStore{
		repo:      repo,
		platforms: normalizePlatforms(platforms),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load replaces the in-memory list with the persisted one.
func (s *WatchListStore) Load(ctx context.Context) error {
	items, err := s.repo.LoadWatchList(ctx)
	if err != nil {
		return persistenceError(err, "load watch list")
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Add validates and stores a new watch item.
func (s *WatchListStore) Add(ctx context.Context, in NewWatchCriteria) (WatchCriteria, error) {
	c := WatchCriteria{
		ID:         s.newID(),
		Keywords:   strings.TrimSpace(in.Keywords),
		Location:   strings.TrimSpace(in.Location),
		Platforms:  normalizePlatforms(in.Platforms),
		AutoApply:  true,
		Filters:    in.Filters,
		Enabled:    true,
		UserEmail:  in.UserEmail,
		ResumePath: in.ResumePath,
		CreatedAt:  s.now(),
	}
	if in.AutoApply != nil {
		c.AutoApply = *in.AutoApply
	}
	if len(c.Platforms) == 0 {
		c.Platforms = slices.Clone(s.platforms)
	}
	if err := s.validate(c); err != nil {
		return WatchCriteria{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.items), c)
	if err := s.save(ctx, next); err != nil {
		return WatchCriteria{}, err
	}
	s.items = next
	return c.clone(), nil
}

// List returns a snapshot of all items in insertion order.
func (s *WatchListStore) List() []WatchCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WatchCriteria, len(s.items))
	for i, c := range s.items {
		out[i] = c.clone()
	}
	return out
}

// Get returns one item by id.
func (s *WatchListStore) Get(id string) (WatchCriteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return WatchCriteria{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return s.items[i].clone(), nil
}

// Len returns the number of items.
func (s *WatchListStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Update applies a partial update. ID and CreatedAt never change.
func (s *WatchListStore) Update(ctx context.Context, id string, u WatchUpdate) (WatchCriteria, error) {
	if u.Platforms != nil {
		u.Platforms = normalizePlatforms(u.Platforms)
		if len(u.Platforms) == 0 {
			u.Platforms = slices.Clone(s.platforms)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return WatchCriteria{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	c := s.items[i].clone()
	u.apply(&c)
	c.Keywords = strings.TrimSpace(c.Keywords)
	c.Location = strings.TrimSpace(c.Location)
	if err := s.validate(c); err != nil {
		return WatchCriteria{}, err
	}

	next := slices.Clone(s.items)
	next[i] = c
	if err := s.save(ctx, next); err != nil {
		return WatchCriteria{}, err
	}
	s.items = next
	return c.clone(), nil
}

// Remove deletes an item. Removing an unknown id is a no-op.
func (s *WatchListStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *WatchListStore) index(id string) int {
	return slices.IndexFunc(s.items, func(c WatchCriteria) bool { return c.ID == id })
}

func (s *WatchListStore) save(ctx context.Context, items []WatchCriteria) error {
	if err := s.repo.SaveWatchList(ctx, items); err != nil {
		return persistenceError(err, "save watch list")
	}
	return nil
}

func (s *WatchListStore) validate(c WatchCriteria) error {
	if c.Keywords == "" || c.Location == "" {
		return errors.WithHint(ErrInvalidCriteria, "keywords and location are required")
	}
	for _, p := range c.Platforms {
		if !slices.Contains(s.platforms, p) {
			return errors.WithHintf(errors.Wrapf(ErrUnknownPlatform, "%q", p),
				"known platforms: %s", strings.Join(s.platforms, ", "))
		}
	}
	return nil
}
