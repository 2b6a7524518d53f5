package app

import (
	"context"
	"errors"
)

var (
	errUpstreamNotConnected = errors.New("telegram client not connected")
	errWarmUpInProgress     = errors.New("identity warm-up in progress")
)

// IngestionReadiness builds the readiness check for the ingestion side of an instance. A standby
// instance only relays, so it is ready without an upstream. The leader is ready once the upstream
// is connected and the watched channels have been warmed up.
func IngestionReadiness(leading, connected, warmed func() bool) func(ctx context.Context) error {
	return func(context.Context) error {
		if !leading() {
			return nil
		}
		if !connected() {
			return errUpstreamNotConnected
		}
		if !warmed() {
			return errWarmUpInProgress
		}
		return nil
	}
}
