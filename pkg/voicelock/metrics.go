package voicelock

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voicelock metrics.
const meterName = "github.com/haivivi/voicelock"

// Metrics holds the OpenTelemetry instruments for voice verification.
// All fields are safe for concurrent use.
type Metrics struct {
	// Attempts counts processed captures. Attributes: action, verdict.
	Attempts metric.Int64Counter

	// Score records the best cosine similarity of each verification that
	// reached the matcher.
	Score metric.Float64Histogram

	// PipelineDuration records extraction plus embedding latency.
	PipelineDuration metric.Float64Histogram

	// Unlocks counts transitions into the unlocked state.
	Unlocks metric.Int64Counter

	// Sessions tracks the number of live sessions in a Manager.
	Sessions metric.Int64UpDownCounter
}

var scoreBuckets = []float64{
	0, 0.25, 0.5, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1,
}

var durationBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates the instruments on the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Attempts, err = m.Int64Counter("voicelock.attempts",
		metric.WithDescription("Processed captures by action and verdict."),
	); err != nil {
		return nil, err
	}
	if met.Score, err = m.Float64Histogram("voicelock.score",
		metric.WithDescription("Best cosine similarity per verification."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("voicelock.pipeline.duration",
		metric.WithDescription("Latency of feature extraction and embedding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Unlocks, err = m.Int64Counter("voicelock.unlocks",
		metric.WithDescription("Lock to unlock transitions."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64UpDownCounter("voicelock.sessions",
		metric.WithDescription("Live verification sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) recordOutcome(ctx context.Context, out Outcome) {
	if m == nil {
		return
	}
	m.Attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", out.Action.String()),
		attribute.String("verdict", out.Verdict.String()),
	))
	if out.Duration > 0 {
		m.PipelineDuration.Record(ctx, out.Duration.Seconds(),
			metric.WithAttributes(attribute.String("action", out.Action.String())))
	}
	if out.Match != nil {
		m.Score.Record(ctx, float64(out.Match.Score))
	}
	if out.Verdict == VerdictAccepted {
		m.Unlocks.Add(ctx, 1)
	}
}

func (m *Metrics) sessionDelta(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.Sessions.Add(ctx, n)
}
