package app

import (
	"github.com/fd1az/depositwatch/business/watch/domain"
	"github.com/fd1az/depositwatch/internal/logger"
)

// ReconcilerFactory builds reconcilers bound to a deposit source. The source
// is chosen per session, everything else is fixed at startup.
type ReconcilerFactory struct {
	matcher domain.Matcher
	clock   Clock
	config  ReconcilerConfig
	logger  logger.LoggerInterface
}

// NewReconcilerFactory creates a factory. A nil clock falls back to real time.
func NewReconcilerFactory(
	matcher domain.Matcher,
	clock Clock,
	cfg ReconcilerConfig,
	log logger.LoggerInterface,
) *ReconcilerFactory {
	if clock == nil {
		clock = NewRealClock()
	}

	return &ReconcilerFactory{
		matcher: matcher,
		clock:   clock,
		config:  cfg,
		logger:  log,
	}
}

// For returns a reconciler polling the given source.
func (f *ReconcilerFactory) For(source DepositSource) *Reconciler {
	return NewReconciler(source, f.matcher, f.clock, f.config, f.logger)
}

// Config returns the factory's polling bounds.
func (f *ReconcilerFactory) Config() ReconcilerConfig {
	return f.config
}
