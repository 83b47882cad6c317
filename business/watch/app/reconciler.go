package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/depositwatch/business/watch/domain"
	"github.com/fd1az/depositwatch/internal/logger"
)

const tracerName = "watch.reconciler"

// ReconcilerConfig bounds a polling run.
type ReconcilerConfig struct {
	Asset        string
	MaxDuration  time.Duration
	PollInterval time.Duration
	Lookback     time.Duration
}

// Reconciler polls a deposit source until a qualifying deposit shows up, the
// watch window elapses, or the session is cancelled.
type Reconciler struct {
	source  DepositSource
	matcher domain.Matcher
	clock   Clock
	config  ReconcilerConfig
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	ticks   metric.Int64Counter
}

// NewReconciler creates a reconciler. A nil clock falls back to real time.
func NewReconciler(
	source DepositSource,
	matcher domain.Matcher,
	clock Clock,
	cfg ReconcilerConfig,
	log logger.LoggerInterface,
) *Reconciler {
	if clock == nil {
		clock = NewRealClock()
	}

	meter := otel.GetMeterProvider().Meter(tracerName)
	ticks, _ := meter.Int64Counter(
		"deposit_poll_ticks_total",
		metric.WithDescription("Polling ticks executed per outcome"),
	)

	return &Reconciler{
		source:  source,
		matcher: matcher,
		clock:   clock,
		config:  cfg,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		ticks:   ticks,
	}
}

// Run polls until a deposit matching expected appears. The active callback is
// the cooperative cancellation hook: when it turns false the run ends with
// OutcomeCancelled. Gateway errors are logged and count as an empty tick, so
// a flaky exchange API never kills a session early.
func (r *Reconciler) Run(ctx context.Context, expected decimal.Decimal, active func() bool) domain.Result {
	ctx, span := r.tracer.Start(ctx, "watch.run",
		trace.WithAttributes(
			attribute.String("asset", r.config.Asset),
			attribute.String("expected", expected.String()),
		),
	)
	defer span.End()

	start := r.clock.Now()
	ticks := 0

	for r.clock.Now().Sub(start) < r.config.MaxDuration && active() {
		select {
		case <-ctx.Done():
			return r.finish(ctx, span, domain.Result{Outcome: domain.OutcomeCancelled, Ticks: ticks})
		default:
		}

		ticks++
		since := r.clock.Now().Add(-r.config.Lookback)

		deposits, err := r.source.ListDeposits(ctx, r.config.Asset, since)
		if err != nil {
			r.logger.Warn(ctx, "deposit fetch failed, treating as empty tick", "error", err)
			deposits = nil
		}

		if match, ok := r.matcher.FindMatch(deposits, expected); ok {
			r.logger.Info(ctx, "deposit matched",
				"exchange", match.Exchange.String(),
				"amount", match.Amount.String(),
				"ticks", ticks,
			)
			return r.finish(ctx, span, domain.Result{
				Outcome: domain.OutcomeMatched,
				Deposit: match,
				Ticks:   ticks,
			})
		}

		select {
		case <-ctx.Done():
			return r.finish(ctx, span, domain.Result{Outcome: domain.OutcomeCancelled, Ticks: ticks})
		case <-r.clock.After(r.config.PollInterval):
		}
	}

	if !active() {
		return r.finish(ctx, span, domain.Result{Outcome: domain.OutcomeCancelled, Ticks: ticks})
	}

	return r.finish(ctx, span, domain.Result{Outcome: domain.OutcomeTimedOut, Ticks: ticks})
}

func (r *Reconciler) finish(ctx context.Context, span trace.Span, res domain.Result) domain.Result {
	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.Int("ticks", res.Ticks),
	)
	r.ticks.Add(ctx, int64(res.Ticks),
		metric.WithAttributes(attribute.String("outcome", string(res.Outcome))))
	return res
}
