package broadcast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/domain"
)

// --- Fake Subscriber ---

type fakeSubscriber struct {
	id       string
	closed   atomic.Bool
	full     atomic.Bool
	mu       sync.Mutex
	received [][]byte
	graceful string
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) ID() string  { return f.id }
func (f *fakeSubscriber) Ready() bool { return !f.closed.Load() }

func (f *fakeSubscriber) Send(data []byte) error {
	if f.closed.Load() {
		return domain.ErrSubscriberNotReady
	}
	if f.full.Load() {
		return domain.ErrSubscriberBufferFull
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, data)
	return nil
}

func (f *fakeSubscriber) CloseGraceful(reason string) {
	f.closed.Store(true)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.graceful = reason
}

func (f *fakeSubscriber) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.received...)
}

func testRecord() *domain.NormalizedRecord {
	code := "ABC123"
	return &domain.NormalizedRecord{Text: "Code: ABC123", From: "bonusdrops", Date: 1700000000, Channel: "bonusdrops", Code: &code}
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)

	delivered, err := hub.Broadcast(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestHub_BroadcastSkipsClosedSubscriber(t *testing.T) {
	hub := NewHub(nil)

	subs := make([]*fakeSubscriber, 5)
	for i := range subs {
		subs[i] = newFakeSubscriber(fmt.Sprintf("sub-%d", i))
		hub.Register(subs[i])
	}
	subs[2].closed.Store(true)

	delivered, err := hub.Broadcast(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, 4, delivered)

	for i, sub := range subs {
		if i == 2 {
			assert.Empty(t, sub.messages())
			continue
		}
		require.Len(t, sub.messages(), 1)
	}
	assert.Equal(t, 4, hub.Count(), "closed subscriber is removed from the live set")
}

func TestHub_BroadcastSendsIdenticalBytes(t *testing.T) {
	hub := NewHub(nil)
	a, b := newFakeSubscriber("a"), newFakeSubscriber("b")
	hub.Register(a)
	hub.Register(b)

	_, err := hub.Broadcast(context.Background(), testRecord())
	require.NoError(t, err)

	want, err := testRecord().Encode()
	require.NoError(t, err)
	assert.Equal(t, want, a.messages()[0])
	assert.Equal(t, want, b.messages()[0])
	assert.JSONEq(t,
		`{"text":"Code: ABC123","from":"bonusdrops","date":1700000000,"channel":"bonusdrops","code":"ABC123","value":null,"requirement":null}`,
		string(want))
}

func TestHub_FullBufferIsSkippedButKept(t *testing.T) {
	hub := NewHub(nil)
	slow := newFakeSubscriber("slow")
	slow.full.Store(true)
	hub.Register(slow)

	assert.Zero(t, hub.BroadcastRaw([]byte("x")))
	assert.Equal(t, 1, hub.Count())
}

func TestHub_RegisterTwiceKeepsOneEntry(t *testing.T) {
	hub := NewHub(nil)
	sub := newFakeSubscriber("a")

	hub.Register(sub)
	hub.Register(sub)
	assert.Equal(t, 1, hub.Count())

	assert.Equal(t, 1, hub.BroadcastRaw([]byte("x")))
	assert.Len(t, sub.messages(), 1)
}

func TestHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Register(newFakeSubscriber("a"))

	hub.Unregister(newFakeSubscriber("b"))
	hub.Unregister(newFakeSubscriber("a")) // same id, different subscriber
	assert.Equal(t, 1, hub.Count())
}

func TestHub_ConcurrentRegisterDuringBroadcast(t *testing.T) {
	hub := NewHub(nil)

	stable := make([]*fakeSubscriber, 10)
	for i := range stable {
		stable[i] = newFakeSubscriber(fmt.Sprintf("stable-%d", i))
		hub.Register(stable[i])
	}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := newFakeSubscriber(fmt.Sprintf("churn-%d", i))
			hub.Register(sub)
			hub.Unregister(sub)
		}()
		go func() {
			defer wg.Done()
			hub.BroadcastRaw([]byte("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, len(stable), hub.Count())
	for _, sub := range stable {
		assert.Len(t, sub.messages(), 100)
	}
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(nil)
	a, b := newFakeSubscriber("a"), newFakeSubscriber("b")
	hub.Register(a)
	hub.Register(b)

	hub.CloseAll("server shutting down")

	assert.Zero(t, hub.Count())
	assert.Equal(t, "server shutting down", a.graceful)
	assert.Equal(t, "server shutting down", b.graceful)
}

func TestHub_Metrics(t *testing.T) {
	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(m)

	live, dead := newFakeSubscriber("live"), newFakeSubscriber("dead")
	hub.Register(live)
	hub.Register(dead)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveConnections))

	dead.closed.Store(true)
	hub.BroadcastRaw([]byte("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesDelivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSkipped.WithLabelValues("not_ready")))
}
