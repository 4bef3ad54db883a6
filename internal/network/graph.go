package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexiusacademia/gosewer/internal/validation"
)

// ErrCycleDetected is returned when the reaches form a closed loop.
var ErrCycleDetected = errors.New("network: cycle detected")

// Graph is the directed node/reach structure of one run.
type Graph struct {
	nodes   map[string]*Node
	order   []string // node ids in input order
	reaches []*Reach // reaches in input order

	forward map[string][]*Reach // node id -> outgoing reaches
	reverse map[string][]*Reach // node id -> incoming reaches
}

// BuildGraph indexes nodes and reaches. Every reach must join two known
// nodes, ids must be unique and lengths positive.
func BuildGraph(nodes []Node, reaches []Reach) (*Graph, error) {
	g := &Graph{
		nodes:   make(map[string]*Node, len(nodes)),
		forward: make(map[string][]*Reach),
		reverse: make(map[string][]*Reach),
	}

	for i := range nodes {
		n := &nodes[i]
		if strings.TrimSpace(n.ID) == "" {
			return nil, &validation.Error{Code: validation.CodeRequired, Field: fmt.Sprintf("nodes[%d].id", i)}
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &validation.Error{Code: validation.CodeDuplicate, Field: "nodes." + n.ID, Constraint: "a unique node id"}
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	seen := make(map[string]bool, len(reaches))
	for i := range reaches {
		r := &reaches[i]
		field := "reaches." + r.ID
		switch {
		case strings.TrimSpace(r.ID) == "":
			return nil, &validation.Error{Code: validation.CodeRequired, Field: fmt.Sprintf("reaches[%d].id", i)}
		case seen[r.ID]:
			return nil, &validation.Error{Code: validation.CodeDuplicate, Field: field, Constraint: "a unique reach id"}
		case g.nodes[r.From] == nil:
			return nil, &validation.Error{Code: validation.CodeUnknownRef, Field: field + ".from", Constraint: fmt.Sprintf("a known node, got %q", r.From)}
		case g.nodes[r.To] == nil:
			return nil, &validation.Error{Code: validation.CodeUnknownRef, Field: field + ".to", Constraint: fmt.Sprintf("a known node, got %q", r.To)}
		}
		var rep validation.Report
		if !rep.Positive(field+".length_m", r.LengthM) {
			return nil, rep.Err()
		}

		seen[r.ID] = true
		g.reaches = append(g.reaches, r)
		g.forward[r.From] = append(g.forward[r.From], r)
		g.reverse[r.To] = append(g.reverse[r.To], r)
	}
	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the node ids in input order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Reaches returns all reaches in input order.
func (g *Graph) Reaches() []*Reach {
	return append([]*Reach(nil), g.reaches...)
}

// Outgoing returns the reaches leaving a node.
func (g *Graph) Outgoing(id string) []*Reach {
	return g.forward[id]
}

// Incoming returns the reaches arriving at a node.
func (g *Graph) Incoming(id string) []*Reach {
	return g.reverse[id]
}

// Outlets returns the nodes that receive flow and discharge nowhere.
func (g *Graph) Outlets() []string {
	var ids []string
	for _, id := range g.order {
		if len(g.forward[id]) == 0 && len(g.reverse[id]) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Divergent returns the nodes with more than one outgoing reach.
func (g *Graph) Divergent() []string {
	var ids []string
	for _, id := range g.order {
		if len(g.forward[id]) > 1 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sequence orders the reaches so that every reach comes after all reaches
// arriving at its upstream node. It runs Kahn's algorithm over the nodes;
// ties are broken by input order so the result is deterministic.
func (g *Graph) Sequence() ([]*Reach, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = len(g.reverse[id])
	}

	var queue []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	seq := make([]*Reach, 0, len(g.reaches))
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, r := range g.forward[id] {
			seq = append(seq, r)
			indegree[r.To]--
			if indegree[r.To] == 0 {
				queue = append(queue, r.To)
			}
		}
	}

	if visited < len(g.order) {
		var stuck []string
		for _, id := range g.order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("%w: nodes %s", ErrCycleDetected, strings.Join(stuck, ", "))
	}
	return seq, nil
}
