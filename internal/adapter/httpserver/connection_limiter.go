package httpserver

import "sync/atomic"

// ConnectionLimiter caps concurrent subscriber connections on this instance.
// A max of zero or less disables the cap.
type ConnectionLimiter struct {
	current atomic.Int64
	max     int64
}

func NewConnectionLimiter(max int64) *ConnectionLimiter {
	return &ConnectionLimiter{max: max}
}

// Acquire takes a slot and reports whether one was available.
func (l *ConnectionLimiter) Acquire() bool {
	if l.max <= 0 {
		l.current.Add(1)
		return true
	}
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *ConnectionLimiter) Release() {
	l.current.Add(-1)
}

func (l *ConnectionLimiter) Current() int64 {
	return l.current.Load()
}

func (l *ConnectionLimiter) Max() int64 {
	return l.max
}
