package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/codedrop/internal/domain"
)

func newTestConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func newTestConn(t *testing.T, clock clockwork.Clock) (*Conn, *websocket.Conn) {
	t.Helper()
	server, client := newTestConnPair(t)
	c := NewConn(server, clock, nil)
	t.Cleanup(c.Close)
	return c, client
}

func TestConn_SendDeliversText(t *testing.T) {
	c, client := newTestConn(t, clockwork.NewRealClock())

	require.NoError(t, c.Send([]byte(`{"text":"hi"}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, `{"text":"hi"}`, string(data))
}

func TestConn_SendPreservesOrder(t *testing.T) {
	c, client := newTestConn(t, clockwork.NewRealClock())

	for _, msg := range []string{"1", "2", "3"} {
		require.NoError(t, c.Send([]byte(msg)))
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []string{"1", "2", "3"} {
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestConn_SendAfterCloseIsNotReady(t *testing.T) {
	c, _ := newTestConn(t, clockwork.NewRealClock())

	c.Close()

	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Send([]byte("x")), domain.ErrSubscriberNotReady)
}

func TestConn_SendBufferFull(t *testing.T) {
	server, _ := newTestConnPair(t)
	// No writer goroutine, so nothing drains the buffer.
	c := &Conn{
		id:          "stuck",
		connection:  server,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}

	for range messageBufferSize {
		require.NoError(t, c.Send([]byte("x")))
	}
	assert.ErrorIs(t, c.Send([]byte("x")), domain.ErrSubscriberBufferFull)
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	c, _ := newTestConn(t, clockwork.NewRealClock())

	calls := 0
	c.OnClose(func() { calls++ })

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent close calls deadlocked")
	}
	assert.Equal(t, 1, calls)
}

func TestConn_CloseGracefulSendsReason(t *testing.T) {
	c, client := newTestConn(t, clockwork.NewRealClock())

	c.CloseGraceful("server shutting down")

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "server shutting down", closeErr.Text)
}

func TestConn_ReadLoopFiresOnCloseWhenPeerLeaves(t *testing.T) {
	c, client := newTestConn(t, clockwork.NewRealClock())

	closed := make(chan struct{})
	c.OnClose(func() { close(closed) })
	go c.ReadLoop()

	require.NoError(t, client.Close())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not called after the peer disconnected")
	}
	assert.False(t, c.Ready())
}

func TestConn_HubUnregistersOnClose(t *testing.T) {
	hub := NewHub(nil)
	c, client := newTestConn(t, clockwork.NewRealClock())
	c.OnClose(func() { hub.Unregister(c) })
	hub.Register(c)
	go c.ReadLoop()

	delivered, err := hub.Broadcast(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"ABC123"`)

	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestConn_IdleTimeout(t *testing.T) {
	// Deadlines are derived from the clock, so start it at the current wall time.
	fakeClock := clockwork.NewFakeClockAt(time.Now())
	c, _ := newTestConn(t, fakeClock)

	assert.False(t, c.checkIdleTimeout())

	fakeClock.Advance(idleTimeout - time.Second)
	assert.False(t, c.checkIdleTimeout())

	fakeClock.Advance(2 * time.Second)
	assert.True(t, c.checkIdleTimeout())
}

func TestConn_ActivityResetsIdleTimer(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Now())
	c, _ := newTestConn(t, fakeClock)

	fakeClock.Advance(3 * time.Minute)
	c.recordActivity()
	fakeClock.Advance(3 * time.Minute)
	assert.False(t, c.checkIdleTimeout(), "activity resets the idle timer")

	fakeClock.Advance(3 * time.Minute)
	assert.True(t, c.checkIdleTimeout())
}
