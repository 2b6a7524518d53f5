// Package broadcast fans serialized records out to live WebSocket subscribers.
//
// The Hub keeps the live set behind a read/write mutex and sends to a snapshot, so a slow subscriber never
// blocks registration. Each Conn owns a writer goroutine draining a small buffer; a full buffer drops the
// record for that subscriber only.
package broadcast
