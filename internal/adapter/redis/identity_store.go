package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/codedrop/internal/domain"
)

const identityKey = "identity:channels"

// IdentityStore mirrors the identity cache into a Redis hash keyed by channel ID.
type IdentityStore struct {
	rdb *goredis.Client
}

var _ domain.IdentityStore = (*IdentityStore)(nil)

func NewIdentityStore(rdb *goredis.Client) *IdentityStore {
	return &IdentityStore{rdb: rdb}
}

// LoadIdentities returns every stored entry. Fields that are not valid IDs are skipped.
func (s *IdentityStore) LoadIdentities(ctx context.Context) (map[int64]string, error) {
	raw, err := s.rdb.HGetAll(ctx, identityKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}

	identities := make(map[int64]string, len(raw))
	for field, name := range raw {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil || name == "" {
			slog.Warn("Skipping malformed identity entry", "field", field)
			continue
		}
		identities[id] = name
	}
	return identities, nil
}

func (s *IdentityStore) SaveIdentity(ctx context.Context, channelID int64, name string) error {
	if err := s.rdb.HSet(ctx, identityKey, strconv.FormatInt(channelID, 10), name).Err(); err != nil {
		return fmt.Errorf("failed to save identity %d: %w", channelID, err)
	}
	return nil
}
