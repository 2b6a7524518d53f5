package app

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/codedrop/internal/domain"
	"github.com/pscheid92/codedrop/internal/platform/correlation"
)

// Outcome is the terminal state of one pipeline pass.
type Outcome string

const (
	OutcomeBroadcast     Outcome = "broadcast"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeEmpty         Outcome = "empty"
	OutcomeUnresolved    Outcome = "unresolved"
	OutcomePublishFailed Outcome = "publish_failed"
	OutcomePanic         Outcome = "panic"
)

// Recorder receives pipeline observations. Implemented by the metrics adapter.
type Recorder interface {
	ObserveEvent(outcome string, duration time.Duration)
	ObserveResolution(confidence domain.Confidence)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEvent(string, time.Duration)   {}
func (nopRecorder) ObserveResolution(domain.Confidence) {}

type peerResolver interface {
	Resolve(ctx context.Context, peer domain.PeerRef) (domain.Resolution, error)
}

type resolutionMatcher interface {
	Matches(res domain.Resolution) bool
}

// Pipeline turns inbound events into normalized records and publishes the ones from watched channels.
type Pipeline struct {
	resolver  peerResolver
	filter    resolutionMatcher
	publisher domain.RecordPublisher
	recorder  Recorder
	clock     clockwork.Clock
}

// NewPipeline creates a pipeline. recorder may be nil.
func NewPipeline(resolver peerResolver, filter resolutionMatcher, publisher domain.RecordPublisher, recorder Recorder, clock clockwork.Clock) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		resolver:  resolver,
		filter:    filter,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
	}
}

// Handle runs one event through the pipeline. It never panics and never returns an error;
// every failure is logged and reported as an Outcome.
func (p *Pipeline) Handle(ctx context.Context, ev domain.InboundEvent) (outcome Outcome) {
	ctx, _ = correlation.Start(ctx)
	start := p.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Panic in event handler", "peer", ev.Peer.Placeholder(), "panic", r, "stack", string(debug.Stack()))
			outcome = OutcomePanic
		}
		p.recorder.ObserveEvent(string(outcome), p.clock.Since(start))
	}()

	return p.handle(ctx, ev)
}

func (p *Pipeline) handle(ctx context.Context, ev domain.InboundEvent) Outcome {
	res, err := p.resolver.Resolve(ctx, ev.Peer)
	if err != nil {
		slog.WarnContext(ctx, "Dropping event, resolution failed", "peer", ev.Peer.Placeholder(), "error", err)
		return OutcomeUnresolved
	}
	p.recorder.ObserveResolution(res.Confidence)

	if res.Confidence != domain.ConfidenceExact {
		slog.InfoContext(ctx, "Degraded resolution", "peer", ev.Peer.Placeholder(), "name", res.Name, "confidence", res.Confidence.String())
	}

	if !p.filter.Matches(res) {
		slog.DebugContext(ctx, "Dropping event from unwatched channel", "name", res.Name)
		return OutcomeIgnored
	}

	text := Reconstruct(ev)
	if text == "" {
		slog.DebugContext(ctx, "Dropping event without payload", "channel", res.Name)
		return OutcomeEmpty
	}

	record := NewRecord(res.Name, text, ev.Date, ExtractFields(text))
	if err := p.publisher.Publish(ctx, record); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record", "channel", res.Name, "error", err)
		return OutcomePublishFailed
	}

	slog.InfoContext(ctx, "Record published", "channel", res.Name, "has_code", record.Code != nil)
	return OutcomeBroadcast
}

// NewRecord assembles the wire record. The sender is the channel itself.
func NewRecord(channel, text string, date int64, f Fields) *domain.NormalizedRecord {
	return &domain.NormalizedRecord{
		Text:        text,
		From:        channel,
		Date:        date,
		Channel:     channel,
		Code:        f.Code,
		Value:       f.Value,
		Requirement: f.Requirement,
	}
}
