package pipeline

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// Schedule returns the stages labelled with any of tags together with the stages they depend on,
// transitively, in dependency order. Stages without an ordering constraint between them keep
// their declaration order.
func Schedule(stages []Stage, tags []string) ([]Stage, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	byID := make(map[StageID]Stage, len(stages))
	order := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return nil, errors.New("stage must have a non-empty ID")
		}
		if err := g.AddVertex(string(s.ID)); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, fmt.Errorf("duplicate stage ID: %s", s.ID)
			}

			return nil, err
		}

		byID[s.ID] = s
		order[string(s.ID)] = i
	}

	// Edges point from a dependency to its dependent.
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on unknown stage %s", s.ID, dep)
			}

			if err := g.AddEdge(string(dep), string(s.ID)); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("circular dependency detected: %s -> %s", dep, s.ID)
				}

				return nil, fmt.Errorf("failed to add dependency %s -> %s: %w", dep, s.ID, err)
			}
		}
	}

	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}

	// Select the labelled stages, then walk up to every stage they need.
	selected := make(map[string]bool)
	var queue []string
	for _, s := range stages {
		if s.matches(tags) {
			queue = append(queue, string(s.ID))
		}
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("no stages match tags %v", tags)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if selected[id] {
			continue
		}
		selected[id] = true

		for dep := range predecessors[id] {
			queue = append(queue, dep)
		}
	}

	sorted, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return order[a] < order[b]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to order stages: %w", err)
	}

	scheduled := make([]Stage, 0, len(selected))
	for _, id := range sorted {
		if selected[id] {
			scheduled = append(scheduled, byID[StageID(id)])
		}
	}

	return scheduled, nil
}
