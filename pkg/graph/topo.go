package graph

import (
	"container/heap"

	"github.com/dukex/curator/pkg/models"
)

// TopologicalOrder orders states so every transition points forward. The states
// given in nodes come first in insertion order, followed by any transition
// endpoint not listed there. States without a defined precedence keep their
// insertion order. Wildcard transitions impose no precedence.
//
// A graph containing a cycle yields a *CycleError naming the unordered states.
func TopologicalOrder(transitions []*models.WorkflowTransition, nodes ...string) ([]string, error) {
	index := map[string]int{}
	names := []string{}

	add := func(id string) {
		if _, ok := index[id]; ok {
			return
		}

		index[id] = len(names)
		names = append(names, id)
	}

	for _, id := range nodes {
		add(id)
	}

	for _, transition := range transitions {
		if !transition.IsWildcard() {
			add(transition.From())
		}

		add(transition.ToStateID)
	}

	successors := make([][]int, len(names))
	indegree := make([]int, len(names))
	seen := map[[2]int]bool{}

	for _, transition := range transitions {
		if transition.IsWildcard() {
			continue
		}

		edge := [2]int{index[transition.From()], index[transition.ToStateID]}
		if seen[edge] {
			continue
		}

		seen[edge] = true
		successors[edge[0]] = append(successors[edge[0]], edge[1])
		indegree[edge[1]]++
	}

	ready := &indexHeap{}

	for i, degree := range indegree {
		if degree == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]string, 0, len(names))

	for ready.Len() > 0 {
		current := heap.Pop(ready).(int)
		order = append(order, names[current])

		for _, next := range successors[current] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) < len(names) {
		remaining := []string{}

		for i, degree := range indegree {
			if degree > 0 {
				remaining = append(remaining, names[i])
			}
		}

		return nil, &CycleError{States: remaining}
	}

	return order, nil
}

// indexHeap pops the smallest insertion index first.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}
