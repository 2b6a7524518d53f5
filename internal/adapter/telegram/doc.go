// Package telegram is the upstream transport: it connects to Telegram with gotd, tracks the peers
// it has seen and hands every new message to the pipeline as a domain.InboundEvent.
package telegram
