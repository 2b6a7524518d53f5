package app

import (
	"slices"

	"github.com/pscheid92/codedrop/internal/domain"
)

type identityLookup interface {
	Lookup(channelID int64) (string, bool)
}

// Filter decides whether a resolved channel is one of the configured subjects.
type Filter struct {
	subjects   map[string]struct{}
	identities identityLookup
}

// NewFilter creates a filter over subjects. identities may be nil.
func NewFilter(subjects []string, identities identityLookup) *Filter {
	set := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		if name := domain.CanonicalName(s); name != "" {
			set[name] = struct{}{}
		}
	}
	return &Filter{subjects: set, identities: identities}
}

// IsWatched compares name case-insensitively, ignoring a leading "@".
func (f *Filter) IsWatched(name string) bool {
	_, ok := f.subjects[domain.CanonicalName(name)]
	return ok
}

// Matches reports whether res belongs to a watched channel, either by name or because
// its channel ID is cached under a watched name.
func (f *Filter) Matches(res domain.Resolution) bool {
	if f.IsWatched(res.Name) {
		return true
	}
	if res.Peer.Kind != domain.PeerChannel || f.identities == nil {
		return false
	}
	cached, ok := f.identities.Lookup(res.Peer.ID)
	return ok && f.IsWatched(cached)
}

// Subjects returns the watched names in sorted order.
func (f *Filter) Subjects() []string {
	names := make([]string, 0, len(f.subjects))
	for name := range f.subjects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
