package entities

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyGraph is derived from a descriptor set on demand. It is never
// mutated incrementally, so re-registering a repository cannot leave stale edges.
type DependencyGraph struct {
	nodes      map[string]RepositoryDescriptor
	dependents map[string][]string
}

// NewDependencyGraph builds the dependency -> dependents adjacency for the descriptors.
func NewDependencyGraph(descriptors []RepositoryDescriptor) *DependencyGraph {
	graph := &DependencyGraph{
		nodes:      make(map[string]RepositoryDescriptor, len(descriptors)),
		dependents: make(map[string][]string),
	}
	for _, d := range descriptors {
		graph.nodes[d.ID()] = d
	}
	for _, d := range descriptors {
		for _, dep := range d.Dependencies {
			graph.dependents[dep] = append(graph.dependents[dep], d.ID())
		}
	}
	for dep := range graph.dependents {
		sort.Strings(graph.dependents[dep])
	}
	return graph
}

// Dependents returns the repositories that declared a dependency on id.
func (g *DependencyGraph) Dependents(id string) []string {
	return g.dependents[id]
}

// Order returns the graph nodes so that every repository comes after all of its
// dependencies that are part of the graph. Input order is kept where the
// dependencies allow it. A cycle cannot cause an endless walk, but the order
// inside a cycle is then arbitrary; registration rejects cycles to avoid that.
func (g *DependencyGraph) Order(candidates []RepositoryDescriptor) []RepositoryDescriptor {
	ordered := make([]RepositoryDescriptor, 0, len(candidates))
	visited := make(map[string]bool, len(candidates))
	inSet := make(map[string]RepositoryDescriptor, len(candidates))
	for _, c := range candidates {
		inSet[c.ID()] = c
	}

	var visit func(d RepositoryDescriptor)
	visit = func(d RepositoryDescriptor) {
		if visited[d.ID()] {
			return
		}
		visited[d.ID()] = true
		for _, depID := range d.Dependencies {
			if dep, ok := inSet[depID]; ok {
				visit(dep)
			}
		}
		ordered = append(ordered, d)
	}

	for _, c := range candidates {
		visit(c)
	}
	return ordered
}

// OrderByDependencies orders the candidates using only their own declared dependencies.
func OrderByDependencies(candidates []RepositoryDescriptor) []RepositoryDescriptor {
	return NewDependencyGraph(candidates).Order(candidates)
}

// FindCycle returns a dependency cycle reachable from any node, or nil.
func (g *DependencyGraph) FindCycle() []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var walk func(id string) bool
	walk = func(id string) bool {
		state[id] = inProgress
		stack = append(stack, id)
		for _, dep := range g.nodes[id].Dependencies {
			if _, known := g.nodes[dep]; !known {
				continue
			}
			switch state[dep] {
			case inProgress:
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						return true
					}
				}
			case unvisited:
				if walk(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited && walk(id) {
			return cycle
		}
	}
	return nil
}

// ValidateAcyclic returns an ErrValidation describing the first cycle found.
func (g *DependencyGraph) ValidateAcyclic() error {
	if cycle := g.FindCycle(); cycle != nil {
		return fmt.Errorf("%w: dependency cycle detected: %s", ErrValidation, strings.Join(cycle, " -> "))
	}
	return nil
}
