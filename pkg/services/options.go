package services

import (
	"context"
	"log/slog"

	"github.com/dukex/curator/pkg/eventbus"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/curator/pkg/services"

// TransitionPolicy lets the caller veto a new transition after the graph invariants
// hold. from is nil for wildcard transitions.
type TransitionPolicy func(ctx context.Context, from, to *models.WorkflowState) error

type options struct {
	publisher              eventbus.EventPublisher
	baseLogger             *slog.Logger
	logger                 *slog.Logger
	tracer                 trace.Tracer
	transitionPolicy       TransitionPolicy
	revertRequiresUpstream bool
	maxDepth               int
	vocabularies           schema.VocabularyProvider
}

// Option configures a service.
type Option func(*options)

// WithEventPublisher publishes audit events for every successful mutation.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(o *options) {
		o.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.baseLogger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithTransitionPolicy installs a hook consulted by CreateTransition.
func WithTransitionPolicy(policy TransitionPolicy) Option {
	return func(o *options) {
		o.transitionPolicy = policy
	}
}

// WithRevertRequiresUpstream requires a revert target to reach its state through transitions.
func WithRevertRequiresUpstream(enabled bool) Option {
	return func(o *options) {
		o.revertRequiresUpstream = enabled
	}
}

// WithMaxTraversalDepth bounds graph traversals. Non-positive values keep the graph default.
func WithMaxTraversalDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithVocabularyProvider overrides the record store as the source of vocabularies
// for record validation.
func WithVocabularyProvider(provider schema.VocabularyProvider) Option {
	return func(o *options) {
		o.vocabularies = provider
	}
}

func newOptions(module string, opts []Option) options {
	o := options{
		baseLogger: slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(&o)
	}

	o.logger = o.baseLogger.With("module", module)

	return o
}

// publish never fails the caller: the mutation is already stored.
func (o *options) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	if err := o.publisher.Publish(ctx, key, event); err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}
