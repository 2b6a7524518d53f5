package domain

import "context"

// Confidence describes how a Resolution was obtained.
type Confidence int

const (
	ConfidenceExact Confidence = iota
	ConfidenceCached
	ConfidenceSynthetic
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceCached:
		return "cached"
	case ConfidenceSynthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving a peer to a channel name.
type Resolution struct {
	Name       string
	Confidence Confidence
	Peer       PeerRef
}

// IdentityStore persists identity cache entries across restarts.
type IdentityStore interface {
	LoadIdentities(ctx context.Context) (map[int64]string, error)
	SaveIdentity(ctx context.Context, channelID int64, name string) error
}
