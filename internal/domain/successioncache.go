package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carloacu/goalplanner/internal/ontology"
	"github.com/google/uuid"
)

// operatorKind distinguishes the two families of operators a domain
// mutation graph spans.
type operatorKind string

const (
	kindAction operatorKind = "action"
	kindEvent  operatorKind = "event"
)

type operatorNode struct {
	id         string
	kind       operatorKind
	precondLit []literal
	effectLit  []literal
}

// SuccessionCache holds, per operator, the transitive closure of
// operators whose effects could help satisfy its precondition: A
// precedes B iff some effect literal of A can newly satisfy a
// precondition literal of B. Rebuilt wholesale on any Domain mutation
// and tagged with a fresh version id so callers holding a stale
// reference can detect it.
type SuccessionCache struct {
	Version uuid.UUID

	nodes        map[string]operatorNode
	directPreds  map[string]map[string]bool // P -> {O : O directly precedes P}
	predecessors map[string]map[string]bool // P -> predecessors*(P)
}

// buildSuccessionCache computes the cache from scratch over the given
// operators.
func buildSuccessionCache(nodes []operatorNode) *SuccessionCache {
	c := &SuccessionCache{
		Version:      uuid.New(),
		nodes:        make(map[string]operatorNode, len(nodes)),
		directPreds:  make(map[string]map[string]bool, len(nodes)),
		predecessors: make(map[string]map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		c.nodes[n.id] = n
		c.directPreds[n.id] = make(map[string]bool)
	}

	for _, o := range nodes {
		for _, p := range nodes {
			if o.id == p.id {
				continue
			}
			if literalsEnable(o.effectLit, p.precondLit) {
				c.directPreds[p.id][o.id] = true
			}
		}
	}

	for _, n := range nodes {
		c.predecessors[n.id] = c.closure(n.id)
	}
	return c
}

// literalsEnable reports whether some effect literal of O matches
// (same predicate, same polarity) some precondition literal of P —
// the unification test at the predicate-identity granularity the cache
// operates on.
func literalsEnable(effects, preconds []literal) bool {
	for _, e := range effects {
		for _, p := range preconds {
			if e.pred == p.pred && e.positive == p.positive {
				return true
			}
		}
	}
	return false
}

func (c *SuccessionCache) closure(id string) map[string]bool {
	out := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for pred := range c.directPreds[cur] {
			if out[pred] {
				continue
			}
			out[pred] = true
			queue = append(queue, pred)
		}
	}
	return out
}

// PredecessorsOf returns predecessors*(operatorID): every operator
// (action or event) whose effects could, via some chain, have
// contributed to satisfying operatorID's precondition.
func (c *SuccessionCache) PredecessorsOf(operatorID string) map[string]bool {
	out := make(map[string]bool, len(c.predecessors[operatorID]))
	for id := range c.predecessors[operatorID] {
		out[id] = true
	}
	return out
}

// ContributorsFor returns, split by kind, every operator whose effect
// can directly satisfy goalPredicate (positive, since a Goal's
// objective is something the planner wants to become true), unioned
// with each contributor's own predecessor closure.
func (c *SuccessionCache) ContributorsFor(goalPredicate ontology.PredicateID) (actionsPredecessors, eventsPredecessors map[string]bool) {
	actionsPredecessors = make(map[string]bool)
	eventsPredecessors = make(map[string]bool)

	add := func(id string, kind operatorKind) {
		if kind == kindAction {
			actionsPredecessors[id] = true
		} else {
			eventsPredecessors[id] = true
		}
	}

	for _, n := range c.nodes {
		contributes := false
		for _, e := range n.effectLit {
			if e.pred == goalPredicate && e.positive {
				contributes = true
				break
			}
		}
		if !contributes {
			continue
		}
		add(n.id, n.kind)
		for predID := range c.predecessors[n.id] {
			add(predID, c.nodes[predID].kind)
		}
	}
	return actionsPredecessors, eventsPredecessors
}

// String renders the cache the way --print_successions dumps it: one
// block per operator, listing its direct enabling literals' owning
// operators.
func (c *SuccessionCache) String(ont *ontology.Ontology) string {
	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		n := c.nodes[id]
		fmt.Fprintf(&b, "%s: %s\n", n.kind, id)
		b.WriteString(strings.Repeat("-", 36))
		b.WriteString("\n")
		preds := make([]string, 0, len(c.directPreds[id]))
		for p := range c.directPreds[id] {
			preds = append(preds, p)
		}
		sort.Strings(preds)
		for _, p := range preds {
			fmt.Fprintf(&b, "  enabled by %s: %s\n", c.nodes[p].kind, p)
		}
		if len(preds) == 0 {
			b.WriteString("  (no predecessors)\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
