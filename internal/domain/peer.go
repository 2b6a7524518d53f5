package domain

import (
	"context"
	"strconv"
)

// PeerKind tells which namespace a PeerRef.ID lives in.
type PeerKind int

const (
	PeerChannel PeerKind = iota
	PeerUser
	PeerChat
)

func (k PeerKind) String() string {
	switch k {
	case PeerChannel:
		return "channel"
	case PeerUser:
		return "user"
	case PeerChat:
		return "chat"
	default:
		return "unknown"
	}
}

// PeerRef is the opaque reference an inbound event carries to its origin.
type PeerRef struct {
	Kind PeerKind
	ID   int64
}

// Placeholder returns the synthetic name used when nothing better is known,
// e.g. "channel_12345" or "user_42".
func (p PeerRef) Placeholder() string {
	return p.Kind.String() + "_" + strconv.FormatInt(p.ID, 10)
}

// Entity is what the upstream knows about a peer.
type Entity struct {
	ID       int64
	Username string
	Title    string
}

// DisplayName returns the username, falling back to the title.
func (e *Entity) DisplayName() string {
	if e.Username != "" {
		return e.Username
	}
	return e.Title
}

// Upstream looks up the entity behind a peer reference.
// Implementations return ErrEntityNotFound (possibly wrapped) when the peer has not been learned yet.
type Upstream interface {
	GetEntity(ctx context.Context, peer PeerRef) (*Entity, error)
}

// UsernameLookup resolves a public username to its entity. Used during warm-up.
type UsernameLookup interface {
	ResolveUsername(ctx context.Context, username string) (*Entity, error)
}
