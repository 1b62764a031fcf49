// Package dag provides the directed acyclic graph used for catalog build
// dependencies. It supports cycle detection with path reporting and
// topological ordering.
package dag

import (
	"fmt"
	"sort"
)

// Node is one catalog configuration in the build graph.
type Node struct {
	// ID is the resolved config path.
	ID string
	// Data holds arbitrary node data.
	Data any
}

// Graph is a directed graph keyed by resolved config path. Edges run from a
// dependency to its dependents.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // dependency -> dependents
	parents map[string][]string // dependent -> dependencies
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds or updates a node.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge records that child depends on parent. Both nodes must exist.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, ok := g.nodes[parentID]; !ok {
		return fmt.Errorf("unknown node %q", parentID)
	}
	if _, ok := g.nodes[childID]; !ok {
		return fmt.Errorf("unknown node %q", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-dependency: %s", parentID)
	}
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the IDs a node depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.parents[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// HasCycle reports whether the graph contains a cycle, with the cycle path
// for error reporting.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		inStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				cameFrom[child] = id
				if visit(child) {
					return true
				}
			} else if inStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = cameFrom[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		inStack[id] = false
		return false
	}

	ids := sortedIDs(g.nodes)
	for _, id := range ids {
		if !visited[id] && visit(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSort returns nodes with every dependency before its dependents.
// The order is deterministic for a given graph.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("dependency cycle: %v", path)
	}

	visited := make(map[string]bool)
	var order []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.parents[id] {
			visit(dep)
		}
		order = append(order, g.nodes[id])
	}

	for _, id := range sortedIDs(g.nodes) {
		visit(id)
	}
	return order, nil
}

func sortedIDs(nodes map[string]*Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
