package domain

import "context"

// Lease is a cluster-wide exclusive lock with a TTL. The holder must renew it before
// it expires; Renew returns ErrLeaseLost once another instance holds it.
type Lease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}
