package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers signed-out session ids until their tokens expire.
// A nil store or nil client accepts every session.
type RevocationStore struct {
	rdb *redis.Client
}

func NewRevocationStore(rdb *redis.Client) *RevocationStore {
	return &RevocationStore{rdb: rdb}
}

func revokedKey(id string) string {
	return "session:revoked:" + id
}

// Revoke marks id as signed out for ttl.
func (s *RevocationStore) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if s == nil || s.rdb == nil || ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(id), "1", ttl).Err()
}

// IsRevoked reports whether id was signed out.
func (s *RevocationStore) IsRevoked(ctx context.Context, id string) (bool, error) {
	if s == nil || s.rdb == nil || id == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, revokedKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
