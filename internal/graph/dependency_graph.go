// Package graph implements the Dependency Analyzer (C5): a DAG over sensor
// keys and the external identifiers they reference, topological ordering,
// cycle detection, and change propagation (§4.5).
//
// The graph is a pure data structure — an arena of string node ids plus
// adjacency lists — with no parent/child pointers, per the source's design
// note on cyclic/tree data (§9): traversal is always by explicit edge list,
// never by object identity.
package graph

import (
	"sort"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Graph is a directed graph: an edge X→Y means "X depends on Y" (Y must
// evaluate first, or be present externally) (§3 Data model: DependencyGraph).
type Graph struct {
	sensors map[string]struct{}   // nodes that are sensors (vs. bare external ids)
	edges   map[string][]string   // X -> [Y, ...]
	rev     map[string][]string   // Y -> [X, ...] (reverse edges, for affected_by)
}

// New builds an empty graph.
func New() *Graph {
	return &Graph{
		sensors: make(map[string]struct{}),
		edges:   make(map[string][]string),
		rev:     make(map[string][]string),
	}
}

// AddSensor registers a sensor node, even if it has no dependencies (so it
// still appears in topological_order()).
func (g *Graph) AddSensor(key string) {
	g.sensors[key] = struct{}{}
	if _, ok := g.edges[key]; !ok {
		g.edges[key] = nil
	}
}

// AddEdge records "from depends on to". to need not be a sensor — it may be
// a bare external identifier, which becomes a leaf node.
func (g *Graph) AddEdge(from, to string) {
	g.AddSensor(from)
	if _, ok := g.edges[to]; !ok {
		g.edges[to] = nil
	}
	g.edges[from] = append(g.edges[from], to)
	g.rev[to] = append(g.rev[to], from)
}

// BreakCycleEdges clears every outgoing edge from key without removing it
// as a sensor node. The caller uses this to neutralize a sensor that
// participates in a main-formula dependency cycle (§4.5, §8 scenario 6:
// "both sensors in Error"): the sensor stays in TopologicalOrder's output
// — and so still gets evaluated-then-skipped by the orchestrator's circuit
// breaker, exactly like an attribute cycle localizes to one sensor — while
// its former dependents no longer wait on edges that can never resolve.
func (g *Graph) BreakCycleEdges(key string) {
	g.edges[key] = nil
}

// BuildFromPlans constructs a Graph from every sensor's BindingPlan,
// wiring CrossSensor names to sensor edges and DataSource/HostEntity names
// to external-id edges. `state` never produces an edge (§4.5 "self-references
// through the state alias are excluded from cycle detection"). The same
// function builds a sensor's attribute sub-DAG when given attribute plans
// keyed by attribute name instead of sensor key — StrategyAttribute edges
// are wired identically (§4.5 "Attribute-to-attribute references ... form
// a sub-DAG").
func BuildFromPlans(plans map[string]*types.BindingPlan) *Graph {
	g := New()
	for key := range plans {
		g.AddSensor(key)
	}
	for key, plan := range plans {
		for _, name := range plan.Names {
			strat, _ := plan.StrategyOf(name)
			switch strat {
			case types.StrategyCrossSensor, types.StrategyDataSource, types.StrategyHostEntity, types.StrategyAttribute:
				g.AddEdge(key, name)
			}
		}
	}
	return g
}

// CycleError reports a minimal fatal cycle (§4.12 CircularDependency).
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	s := "circular dependency: "
	for i, k := range e.Cycle {
		if i > 0 {
			s += " -> "
		}
		s += k
	}
	return s
}

// TopologicalOrder returns sensor keys ordered so dependencies precede
// dependents, tie-broken stably by key (§4.5 `topological_order()`). It
// fails with a *CycleError naming one minimal cycle if the sensor subgraph
// is not acyclic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if cycles := g.DetectCycles(); len(cycles) > 0 {
		return nil, &CycleError{Cycle: cycles[0]}
	}

	indegree := make(map[string]int, len(g.sensors))
	for key := range g.sensors {
		indegree[key] = 0
	}
	for from := range g.edges {
		if _, isSensor := g.sensors[from]; !isSensor {
			continue
		}
		for _, to := range g.edges[from] {
			if _, isSensor := g.sensors[to]; isSensor {
				indegree[from]++
			}
		}
	}

	var ready []string
	for key, d := range indegree {
		if d == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.sensors))
	remaining := make(map[string]int, len(indegree))
	for k, v := range indegree {
		remaining[k] = v
	}

	for len(ready) > 0 {
		sort.Strings(ready)
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)

		// A sensor is "ready" once every sensor it depends on has been
		// emitted; walk the reverse edges to find dependents.
		for _, dependent := range g.rev[key] {
			if _, isSensor := g.sensors[dependent]; !isSensor {
				continue
			}
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	return order, nil
}

// DetectCycles returns every minimal cycle among sensor nodes, each as an
// ordered list ending back at its start (§4.5 `detect_cycles()`).
// External-identifier leaves can never participate in a cycle (they have
// no outgoing edges), so only the sensor subgraph is searched.
func (g *Graph) DetectCycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.sensors))
	var stack []string
	var cycles [][]string

	keys := make([]string, 0, len(g.sensors))
	for k := range g.sensors {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic visitation order

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)

		neighbors := append([]string(nil), g.edges[node]...)
		sort.Strings(neighbors)
		for _, next := range neighbors {
			if _, isSensor := g.sensors[next]; !isSensor {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Found a back-edge into the current path: extract the
				// minimal cycle starting at `next`.
				for i, s := range stack {
					if s == next {
						cycle := append([]string(nil), stack[i:]...)
						cycle = append(cycle, next)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, k := range keys {
		if color[k] == white {
			visit(k)
		}
	}
	return cycles
}

// AffectedBy returns every sensor that must re-evaluate given changes to the
// given external identifiers, transitively through cross-sensor and
// external-id edges (§4.5 `affected_by(changed)`).
func (g *Graph) AffectedBy(changed map[string]struct{}) map[string]struct{} {
	affected := make(map[string]struct{})
	var queue []string
	for id := range changed {
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dependent := range g.rev[id] {
			if _, isSensor := g.sensors[dependent]; !isSensor {
				continue
			}
			if _, seen := affected[dependent]; seen {
				continue
			}
			affected[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
	}
	return affected
}
