package app

import (
	"context"
	"sync"
	"time"

	"github.com/pscheid92/codedrop/internal/domain"
)

// --- Mock Upstream ---

type mockUpstream struct {
	getEntityFn func(ctx context.Context, peer domain.PeerRef) (*domain.Entity, error)
}

func (m *mockUpstream) GetEntity(ctx context.Context, peer domain.PeerRef) (*domain.Entity, error) {
	if m.getEntityFn != nil {
		return m.getEntityFn(ctx, peer)
	}
	return nil, domain.ErrEntityNotFound
}

// --- Mock UsernameLookup ---

type mockLookup struct {
	resolveUsernameFn func(ctx context.Context, username string) (*domain.Entity, error)
}

func (m *mockLookup) ResolveUsername(ctx context.Context, username string) (*domain.Entity, error) {
	if m.resolveUsernameFn != nil {
		return m.resolveUsernameFn(ctx, username)
	}
	return nil, domain.ErrEntityNotFound
}

// --- Mock IdentityStore ---

type mockIdentityStore struct {
	mu             sync.Mutex
	loadFn         func(ctx context.Context) (map[int64]string, error)
	saveIdentityFn func(ctx context.Context, channelID int64, name string) error
	saved          map[int64]string
}

func (m *mockIdentityStore) LoadIdentities(ctx context.Context) (map[int64]string, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return map[int64]string{}, nil
}

func (m *mockIdentityStore) SaveIdentity(ctx context.Context, channelID int64, name string) error {
	m.mu.Lock()
	if m.saved == nil {
		m.saved = make(map[int64]string)
	}
	m.saved[channelID] = name
	m.mu.Unlock()

	if m.saveIdentityFn != nil {
		return m.saveIdentityFn(ctx, channelID, name)
	}
	return nil
}

// --- Mock RecordPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, record *domain.NormalizedRecord) error
	records   []*domain.NormalizedRecord
}

func (m *mockPublisher) Publish(ctx context.Context, record *domain.NormalizedRecord) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, record); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockPublisher) published() []*domain.NormalizedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.NormalizedRecord(nil), m.records...)
}

// --- Mock Recorder ---

type mockRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	confidences []domain.Confidence
}

func (m *mockRecorder) ObserveEvent(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockRecorder) ObserveResolution(c domain.Confidence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, c)
}

func ptr(s string) *string { return &s }
