package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/codedrop/internal/adapter/metrics"
	"github.com/pscheid92/codedrop/internal/domain"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	idleTimeout       = 5 * time.Minute
	messageBufferSize = 16
	maxInboundSize    = 512
)

// Conn is a WebSocket subscriber. Writes happen on a dedicated goroutine; Send only enqueues.
type Conn struct {
	id            string
	connection    *websocket.Conn
	clock         clockwork.Clock
	metrics       *metrics.WebSocketMetrics
	sendChannel   chan []byte
	doneChannel   chan struct{}
	closed        atomic.Bool
	stopOnce      sync.Once
	wg            sync.WaitGroup
	lastActivity  time.Time
	activityMutex sync.Mutex
	onClose       []func()
	onCloseMutex  sync.Mutex
}

// NewConn starts the writer goroutine for connection. m may be nil.
func NewConn(connection *websocket.Conn, clock clockwork.Clock, m *metrics.WebSocketMetrics) *Conn {
	c := &Conn{
		id:           uuid.NewString(),
		connection:   connection,
		clock:        clock,
		metrics:      m,
		sendChannel:  make(chan []byte, messageBufferSize),
		doneChannel:  make(chan struct{}),
		lastActivity: clock.Now(),
	}
	c.configurePongHandler()
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Conn) ID() string { return c.id }

// Ready reports whether the connection is still open.
func (c *Conn) Ready() bool { return !c.closed.Load() }

// Done is closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} { return c.doneChannel }

// Send enqueues data without blocking.
func (c *Conn) Send(data []byte) error {
	if !c.Ready() {
		return domain.ErrSubscriberNotReady
	}

	select {
	case <-c.doneChannel:
		return domain.ErrSubscriberNotReady
	default:
	}

	select {
	case c.sendChannel <- data:
		return nil
	default:
		return domain.ErrSubscriberBufferFull
	}
}

// OnClose registers fn to run once when the connection closes.
func (c *Conn) OnClose(fn func()) {
	c.onCloseMutex.Lock()
	defer c.onCloseMutex.Unlock()
	c.onClose = append(c.onClose, fn)
}

// ReadLoop consumes inbound frames until the peer goes away, then closes the connection.
// Inbound data is discarded; it only counts as activity.
func (c *Conn) ReadLoop() {
	defer c.Close()

	c.connection.SetReadLimit(maxInboundSize)
	for {
		if _, _, err := c.connection.ReadMessage(); err != nil {
			return
		}
		c.updateReadDeadline()
		c.recordActivity()
	}
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (c *Conn) Close() {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.doneChannel)
		_ = c.connection.Close()
		c.wg.Wait()
		c.fireOnClose()
	})
}

// CloseGraceful sends a close frame with reason before closing.
func (c *Conn) CloseGraceful(reason string) {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.doneChannel)

		// The writer must be gone before the close frame is written.
		c.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		c.updateWriteDeadline()
		_ = c.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = c.connection.Close()
		c.fireOnClose()
	})
}

func (c *Conn) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.sendChannel:
			start := c.clock.Now()
			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.abort()
				return
			}
			if c.metrics != nil {
				c.metrics.SendDuration.Observe(c.clock.Since(start).Seconds())
			}
		case <-ticker.Chan():
			if c.checkIdleTimeout() {
				c.abort()
				return
			}

			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				if c.metrics != nil {
					c.metrics.PingFailures.Inc()
				}
				c.abort()
				return
			}
		case <-c.doneChannel:
			return
		}
	}
}

// abort marks the connection unusable from the writer goroutine. Closing the socket makes
// ReadLoop return, which runs the full Close.
func (c *Conn) abort() {
	c.closed.Store(true)
	_ = c.connection.Close()
}

func (c *Conn) fireOnClose() {
	c.onCloseMutex.Lock()
	callbacks := c.onClose
	c.onClose = nil
	c.onCloseMutex.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (c *Conn) configurePongHandler() {
	c.updateReadDeadline()
	c.connection.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		c.recordActivity()
		return nil
	})
}

func (c *Conn) updateWriteDeadline() {
	_ = c.connection.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *Conn) updateReadDeadline() {
	_ = c.connection.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}

func (c *Conn) recordActivity() {
	c.activityMutex.Lock()
	defer c.activityMutex.Unlock()
	c.lastActivity = c.clock.Now()
}

// checkIdleTimeout reports whether the peer has been silent for longer than idleTimeout.
func (c *Conn) checkIdleTimeout() bool {
	c.activityMutex.Lock()
	idle := c.clock.Since(c.lastActivity)
	c.activityMutex.Unlock()

	if idle >= idleTimeout {
		if c.metrics != nil {
			c.metrics.IdleDisconnects.Inc()
		}
		return true
	}
	return false
}
