package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/codedrop/internal/domain"
	"github.com/pscheid92/codedrop/internal/platform/retry"
)

const storeWriteTimeout = 2 * time.Second

var warmUpPolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   500 * time.Millisecond,
	RateLimitBackoff: 5 * time.Second,
	MaxWait:          2 * time.Minute,
}

// IdentityCache maps channel IDs to canonical channel names. Entries are never removed.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[int64]string
}

func NewIdentityCache() *IdentityCache {
	return &IdentityCache{entries: make(map[int64]string)}
}

func (c *IdentityCache) Lookup(channelID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.entries[channelID]
	return name, ok
}

// store records the canonical form of name and reports whether the entry changed.
func (c *IdentityCache) store(channelID int64, name string) bool {
	name = domain.CanonicalName(name)
	if name == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[channelID]; ok && current == name {
		return false
	}
	c.entries[channelID] = name
	return true
}

func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolver maps peer references to channel names. It owns the identity cache.
type Resolver struct {
	upstream domain.Upstream
	store    domain.IdentityStore
	cache    *IdentityCache
	timeout  time.Duration
	warmUp   retry.Policy
	inflight singleflight.Group
	warmed   atomic.Bool
}

// NewResolver creates a resolver. store may be nil; timeout bounds each upstream lookup.
func NewResolver(upstream domain.Upstream, store domain.IdentityStore, timeout time.Duration) *Resolver {
	return &Resolver{
		upstream: upstream,
		store:    store,
		cache:    NewIdentityCache(),
		timeout:  timeout,
		warmUp:   warmUpPolicy,
	}
}

// Identities exposes the cache for read-only lookups.
func (r *Resolver) Identities() *IdentityCache {
	return r.cache
}

// Preload fills the cache from the identity store, if one is configured.
func (r *Resolver) Preload(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	entries, err := r.store.LoadIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load identities: %w", err)
	}

	loaded := 0
	for id, name := range entries {
		if r.cache.store(id, name) {
			loaded++
		}
	}
	return loaded, nil
}

// WarmUp resolves every subject through the upstream and caches its channel ID.
// Subjects that cannot be resolved are logged and skipped. Returns the number cached.
func (r *Resolver) WarmUp(ctx context.Context, subjects []string, lookup domain.UsernameLookup) int {
	cached := 0
	for _, subject := range subjects {
		policy := r.warmUp
		policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Retrying entity warm-up", "subject", subject, "attempt", attempt, "backoff", backoff, "error", err)
		}

		entity, err := retry.Do(ctx, policy, classifyLookupError, func(ctx context.Context) (*domain.Entity, error) {
			lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return lookup.ResolveUsername(lookupCtx, subject)
		})
		if err != nil {
			slog.Error("Failed to cache entity", "subject", subject, "error", err)
			continue
		}

		r.remember(ctx, entity.ID, subject)
		cached++
		slog.Info("Entity cached", "subject", subject, "channel_id", entity.ID)
	}
	r.warmed.Store(true)
	return cached
}

// WarmedUp reports whether WarmUp has completed at least once.
func (r *Resolver) WarmedUp() bool {
	return r.warmed.Load()
}

// Resolve returns the channel name behind peer. Concurrent calls for the same peer share one lookup.
func (r *Resolver) Resolve(ctx context.Context, peer domain.PeerRef) (domain.Resolution, error) {
	v, err, _ := r.inflight.Do(peer.Placeholder(), func() (any, error) {
		return r.resolve(ctx, peer)
	})
	if err != nil {
		return domain.Resolution{}, err
	}
	return v.(domain.Resolution), nil
}

func (r *Resolver) resolve(ctx context.Context, peer domain.PeerRef) (domain.Resolution, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entity, err := r.upstream.GetEntity(lookupCtx, peer)
	if errors.Is(err, domain.ErrEntityNotFound) {
		return r.degraded(peer), nil
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve %s: %w", peer.Placeholder(), err)
	}

	name := entity.DisplayName()
	if name == "" {
		return r.degraded(peer), nil
	}

	// Titles are display text, not handles; only a username may enter the cache.
	if peer.Kind == domain.PeerChannel && entity.Username != "" {
		r.remember(ctx, peer.ID, entity.Username)
	}

	return domain.Resolution{Name: name, Confidence: domain.ConfidenceExact, Peer: peer}, nil
}

func (r *Resolver) degraded(peer domain.PeerRef) domain.Resolution {
	if peer.Kind == domain.PeerChannel {
		if name, ok := r.cache.Lookup(peer.ID); ok {
			return domain.Resolution{Name: name, Confidence: domain.ConfidenceCached, Peer: peer}
		}
	}
	return domain.Resolution{Name: peer.Placeholder(), Confidence: domain.ConfidenceSynthetic, Peer: peer}
}

func (r *Resolver) remember(ctx context.Context, channelID int64, name string) {
	if !r.cache.store(channelID, name) || r.store == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()
	if err := r.store.SaveIdentity(storeCtx, channelID, domain.CanonicalName(name)); err != nil {
		slog.WarnContext(ctx, "Failed to persist identity", "channel_id", channelID, "error", err)
	}
}

func classifyLookupError(err error) retry.Decision {
	var limited *domain.RateLimitedError
	switch {
	case errors.As(err, &limited):
		return retry.Decision{Action: retry.After, Wait: limited.Wait}
	case errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, context.Canceled):
		return retry.Decision{Action: retry.Stop}
	default:
		return retry.Decision{Action: retry.Retry}
	}
}
