// Package app provides the ingestion pipeline.
//
// Resolves the originating channel of an inbound event, filters it against the configured subjects,
// reconstructs the message text, extracts code/value/requirement fields and hands the resulting
// record to a publisher. Depends on domain interfaces, not concrete implementations.
package app
