package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/codedrop/internal/domain"
)

const ingestLeaderKey = "codedrop:leader:ingest"

// Only the holder may extend or drop the key.
var (
	renewLeaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)
	releaseLeaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)
)

// LeaderLease is a single-holder lease on a Redis key with a TTL. When the holder stops
// renewing, the key expires and another instance can acquire it.
type LeaderLease struct {
	rdb        *goredis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

var _ domain.Lease = (*LeaderLease)(nil)

// NewLeaderLease creates the ingestion lease for instanceID.
func NewLeaderLease(rdb *goredis.Client, instanceID string, ttl time.Duration) *LeaderLease {
	return &LeaderLease{rdb: rdb, instanceID: instanceID, key: ingestLeaderKey, ttl: ttl}
}

// TryAcquire takes the lease if nobody holds it.
func (l *LeaderLease) TryAcquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
}

// Renew extends the TTL. It returns domain.ErrLeaseLost when another instance holds the key
// or it has expired.
func (l *LeaderLease) Renew(ctx context.Context) error {
	result, err := renewLeaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

// Release gives up the lease if this instance still holds it.
func (l *LeaderLease) Release(ctx context.Context) error {
	return releaseLeaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID).Err()
}

// Holder returns the instance currently holding the lease, or "" when it is free.
func (l *LeaderLease) Holder(ctx context.Context) (string, error) {
	holder, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return holder, err
}
