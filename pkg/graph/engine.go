// Package graph answers reachability and ordering questions over the workflow
// transition graph and the revert graph.
//
// The engine holds no graph in memory: every query lazily reads adjacency from
// the record store, so results always reflect the store's current state.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxDepth bounds every traversal. Workflow graphs hold tens to hundreds of states.
const DefaultMaxDepth = 256

const tracerName = "github.com/dukex/curator/pkg/graph"

// StateReader is the part of the record store the engine reads states from.
type StateReader interface {
	GetState(ctx context.Context, idOrName string) (*models.WorkflowState, error)
	ListStates(ctx context.Context, filter persistence.StateFilter) ([]*models.WorkflowState, error)
}

// TransitionReader is the part of the record store the engine reads edges from.
type TransitionReader interface {
	ListTransitions(ctx context.Context, filter persistence.TransitionFilter) ([]*models.WorkflowTransition, error)
}

// Engine runs graph queries against the record store.
type Engine struct {
	states      StateReader
	transitions TransitionReader
	maxDepth    int
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer used for query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates a graph engine reading from the given store.
func NewEngine(states StateReader, transitions TransitionReader, opts ...Option) *Engine {
	engine := &Engine{
		states:      states,
		transitions: transitions,
		maxDepth:    DefaultMaxDepth,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.logger = engine.logger.With("module", "graph")

	return engine
}

// MaxDepth returns the traversal bound in effect.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

type frame struct {
	stateID string
	depth   int
}

// TransitionPathExists reports whether toState can be reached from fromState by
// following transitions. Wildcard transitions leave every state. Each state is
// entered at most once, so cyclic graphs terminate.
func (e *Engine) TransitionPathExists(ctx context.Context, fromState, toState string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "graph.TransitionPathExists", trace.WithAttributes(
		attribute.String(otelhelper.StateFromKey, fromState),
		attribute.String(otelhelper.StateToKey, toState),
	))
	defer span.End()

	if fromState == "" || toState == "" {
		return false, nil
	}

	from, err := e.lookup(ctx, fromState)
	if err != nil || from == nil {
		return false, err
	}

	to, err := e.lookup(ctx, toState)
	if err != nil || to == nil {
		return false, err
	}

	wildcards, err := e.transitions.ListTransitions(ctx, persistence.TransitionFilter{WildcardOnly: true})
	if err != nil {
		return false, fmt.Errorf("failed to list wildcard transitions: %w", err)
	}

	for _, transition := range wildcards {
		if transition.ToStateID == to.ID {
			return true, nil
		}
	}

	visited := map[string]bool{from.ID: true}
	stack := []frame{{stateID: from.ID}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.depth >= e.maxDepth {
			e.logger.WarnContext(ctx, "Transition traversal exceeded depth bound",
				"from", from.ID, "to", to.ID, "max_depth", e.maxDepth)

			return false, fmt.Errorf("transition path %s -> %s: %w", from.ID, to.ID, ErrTraversalTooDeep)
		}

		outgoing, err := e.transitions.ListTransitions(ctx, persistence.TransitionFilter{FromStateID: current.stateID})
		if err != nil {
			return false, fmt.Errorf("failed to list transitions from %s: %w", current.stateID, err)
		}

		for _, transition := range append(outgoing, wildcards...) {
			next := transition.ToStateID
			if next == to.ID {
				return true, nil
			}

			if visited[next] {
				continue
			}

			visited[next] = true

			stack = append(stack, frame{stateID: next, depth: current.depth + 1})
		}
	}

	return false, nil
}

// RevertPathExists reports whether following revert targets from fromState reaches
// toState. Every hop must land on an active state; a chain that loops back on itself
// resolves to false.
func (e *Engine) RevertPathExists(ctx context.Context, fromState, toState string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "graph.RevertPathExists", trace.WithAttributes(
		attribute.String(otelhelper.StateFromKey, fromState),
		attribute.String(otelhelper.StateToKey, toState),
	))
	defer span.End()

	if fromState == "" || toState == "" || fromState == toState {
		return false, nil
	}

	current, err := e.lookup(ctx, fromState)
	if err != nil || !current.IsActive() {
		return false, err
	}

	to, err := e.lookup(ctx, toState)
	if err != nil || !to.IsActive() || to.ID == current.ID {
		return false, err
	}

	visited := map[string]bool{}

	for depth := 0; ; depth++ {
		if depth >= e.maxDepth {
			e.logger.WarnContext(ctx, "Revert traversal exceeded depth bound",
				"from", fromState, "to", to.ID, "max_depth", e.maxDepth)

			return false, fmt.Errorf("revert path %s -> %s: %w", fromState, to.ID, ErrTraversalTooDeep)
		}

		if visited[current.ID] {
			return false, nil
		}

		visited[current.ID] = true

		if !current.HasRevertTarget() {
			return false, nil
		}

		target, err := e.lookup(ctx, *current.RevertTargetID)
		if err != nil || !target.IsActive() {
			return false, err
		}

		if target.ID == to.ID {
			return true, nil
		}

		current = target
	}
}

// OrderStates returns the active states in a topological order of the transition graph.
func (e *Engine) OrderStates(ctx context.Context) ([]*models.WorkflowState, error) {
	ctx, span := e.tracer.Start(ctx, "graph.OrderStates")
	defer span.End()

	states, err := e.states.ListStates(ctx, persistence.StateFilter{Status: models.StateStatusActive})
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	transitions, err := e.transitions.ListTransitions(ctx, persistence.TransitionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	byID := make(map[string]*models.WorkflowState, len(states))
	ids := make([]string, 0, len(states))

	for _, state := range states {
		byID[state.ID] = state
		ids = append(ids, state.ID)
	}

	active := make([]*models.WorkflowTransition, 0, len(transitions))

	for _, transition := range transitions {
		if _, ok := byID[transition.ToStateID]; !ok {
			continue
		}

		if !transition.IsWildcard() {
			if _, ok := byID[transition.From()]; !ok {
				continue
			}
		}

		active = append(active, transition)
	}

	order, err := TopologicalOrder(active, ids...)
	if err != nil {
		return nil, err
	}

	ordered := make([]*models.WorkflowState, 0, len(order))
	for _, id := range order {
		ordered = append(ordered, byID[id])
	}

	return ordered, nil
}

// lookup resolves an ID or name, mapping a missing state to nil.
func (e *Engine) lookup(ctx context.Context, idOrName string) (*models.WorkflowState, error) {
	state, err := e.states.GetState(ctx, idOrName)
	if err != nil {
		if persistence.IsStateNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get state %s: %w", idOrName, err)
	}

	return state, nil
}
