// Package redis stores seen job fingerprints in a Redis set, for
// deployments that share one dedup history between several instances.
package redis

import (
	"context"

	"github.com/cwygoda/jobwatch/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultSeenKey is the set holding fingerprints.
const DefaultSeenKey = "jobwatch:seen"

// SeenStore implements domain.SeenJobRepository.
type SeenStore struct {
	rdb *redis.Client
	key string
}

// NewSeenStore creates a store using the given set key.
func NewSeenStore(rdb *redis.Client, key string) *SeenStore {
	if key == "" {
		key = DefaultSeenKey
	}
	return &SeenStore{rdb: rdb, key: key}
}

// LoadSeen returns all members of the set.
func (s *SeenStore) LoadSeen(ctx context.Context) ([]domain.Fingerprint, error) {
	members, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	fps := make([]domain.Fingerprint, len(members))
	for i, m := range members {
		fps[i] = domain.Fingerprint(m)
	}
	return fps, nil
}

// SaveSeen adds fingerprints to the set.
func (s *SeenStore) SaveSeen(ctx context.Context, fps []domain.Fingerprint) error {
	if len(fps) == 0 {
		return nil
	}
	members := make([]any, len(fps))
	for i, fp := range fps {
		members[i] = string(fp)
	}
	return s.rdb.SAdd(ctx, s.key, members...).Err()
}
