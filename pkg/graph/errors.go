package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTraversalTooDeep is returned when a traversal exceeds the configured depth bound.
	ErrTraversalTooDeep = errors.New("graph too deep or possible cycle")

	// ErrCycleDetected is returned when an ordering is requested for a graph that is not a DAG.
	ErrCycleDetected = errors.New("cycle detected")
)

// CycleError lists the states that could not be ordered because they lie on or behind a cycle.
type CycleError struct {
	States []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(e.States, ", "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// IsCycle checks if an error reports a cycle in the transition graph.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}
