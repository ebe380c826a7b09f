// Package newick converts simulation records to phylogenetic trees and back.
//
// The shared contract is the sim.Record table: per-lineage birth time, death
// time, parent, extant flag. FromRecord builds the bifurcating topology in
// which every speciation is an internal node whose first child continues the
// parent lineage and whose second child starts the new one; Tree.Record
// inverts the transform. A record round-tripped through both directions is
// reproduced exactly.
package newick

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/cladesim/cladesim/sim"
)

// founderGroupLabel marks the synthetic root joining multiple founders, so
// the inverse transform can tell a founder polytomy from a speciation node.
const founderGroupLabel = "founders"

// Node is one vertex of a phylogenetic tree. Length is the branch length to
// the parent (for a root, the offset from the clade origin).
type Node struct {
	Label    string
	Length   float64
	Children []*Node
}

// IsLeaf reports whether the node is a tip.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is a rooted phylogenetic tree with branch lengths in the same time
// units as the record it came from.
type Tree struct {
	Root *Node
}

// FromRecord builds the tree for a simulation record. Extinct lineages end
// at their death time; extant (or censored) lineages end at the record's
// horizon.
func FromRecord(rec *sim.Record) (*Tree, error) {
	if rec == nil || len(rec.Lineages) == 0 {
		return nil, fmt.Errorf("newick: empty record")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("newick: %w", err)
	}

	children := make(map[int][]int)
	var founders []int
	for _, l := range rec.Lineages {
		if l.Parent == sim.NoParent {
			founders = append(founders, l.ID)
			continue
		}
		children[l.Parent] = append(children[l.Parent], l.ID)
	}
	for _, cs := range children {
		sort.Slice(cs, func(i, j int) bool {
			return rec.Lineages[cs[i]].BirthTime < rec.Lineages[cs[j]].BirthTime
		})
	}

	b := &builder{rec: rec, pending: children}
	if len(founders) == 1 {
		return &Tree{Root: b.segment(founders[0], 0)}, nil
	}
	root := &Node{Label: founderGroupLabel}
	for _, f := range founders {
		root.Children = append(root.Children, b.segment(f, 0))
	}
	return &Tree{Root: root}, nil
}

type builder struct {
	rec     *sim.Record
	pending map[int][]int // per lineage, unconsumed children in birth order
}

// segment builds the subtree for lineage id starting at absolute time t0.
// Each remaining child of the lineage becomes one internal node on the chain
// from t0 down to the lineage's tip.
func (b *builder) segment(id int, t0 float64) *Node {
	if rest := b.pending[id]; len(rest) > 0 {
		child := rest[0]
		b.pending[id] = rest[1:]
		birth := b.rec.Lineages[child].BirthTime
		return &Node{
			Length: birth - t0,
			Children: []*Node{
				b.segment(id, birth),
				b.segment(child, birth),
			},
		}
	}
	l := b.rec.Lineages[id]
	end := b.rec.TMax
	if l.Died() && !l.Extant {
		end = l.DeathTime
	}
	return &Node{Label: fmt.Sprintf("t%d", id), Length: end - t0}
}

// Record inverts FromRecord. tMax must be the horizon the tree was built
// against; tips reaching it (within tolerance) come back extant with a
// censored death time, all other tips come back extinct at their end time.
// Lineages are recreated in global birth-time order, so IDs and parent links
// match the record the tree was built from.
func (t *Tree) Record(tMax float64) (*sim.Record, error) {
	if t == nil || t.Root == nil {
		return nil, fmt.Errorf("newick: empty tree")
	}
	rec := &sim.Record{TMax: tMax}

	var q eventHeap
	add := func(n *Node, t0 float64, lineage int) error {
		if n.IsLeaf() {
			return finalizeTip(rec, n, t0, lineage, tMax)
		}
		if len(n.Children) != 2 {
			return fmt.Errorf("newick: internal node with %d children (want 2)", len(n.Children))
		}
		heap.Push(&q, pendingSplit{node: n, start: t0, lineage: lineage})
		return nil
	}

	newLineage := func(parent int, birth float64) int {
		id := len(rec.Lineages)
		rec.Lineages = append(rec.Lineages, sim.Lineage{
			ID:        id,
			Parent:    parent,
			BirthTime: birth,
			DeathTime: sim.DeathUnknown,
		})
		return id
	}

	roots := []*Node{t.Root}
	if t.Root.Label == founderGroupLabel {
		roots = t.Root.Children
	}
	for _, r := range roots {
		id := newLineage(sim.NoParent, 0)
		if err := add(r, 0, id); err != nil {
			return nil, err
		}
	}

	// Splits are replayed in ascending event time so child IDs come out in
	// creation order, mirroring the engine's append-only record.
	for q.Len() > 0 {
		p := heap.Pop(&q).(pendingSplit)
		birth := p.start + p.node.Length
		child := newLineage(p.lineage, birth)
		if err := add(p.node.Children[0], birth, p.lineage); err != nil {
			return nil, err
		}
		if err := add(p.node.Children[1], birth, child); err != nil {
			return nil, err
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("newick: reconstructed record invalid: %w", err)
	}
	return rec, nil
}

// tipTol absorbs float summation error when deciding whether a tip reaches
// the horizon.
const tipTol = 1e-9

func finalizeTip(rec *sim.Record, n *Node, t0 float64, lineage int, tMax float64) error {
	end := t0 + n.Length
	if end > tMax+tipTol {
		return fmt.Errorf("newick: tip %q ends at %g past the horizon %g", n.Label, end, tMax)
	}
	if end >= tMax-tipTol {
		rec.Lineages[lineage].Extant = true
		return nil
	}
	rec.Lineages[lineage].DeathTime = end
	return nil
}

// pendingSplit is a speciation node waiting to be replayed at start+Length.
type pendingSplit struct {
	node    *Node
	start   float64
	lineage int
}

type eventHeap []pendingSplit

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	return h[i].start+h[i].node.Length < h[j].start+h[j].node.Length
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(pendingSplit))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Newick serializes the tree in Newick format with branch lengths.
func (t *Tree) Newick() string {
	var sb strings.Builder
	writeNewick(&sb, t.Root)
	sb.WriteByte(';')
	return sb.String()
}

func writeNewick(sb *strings.Builder, n *Node) {
	if !n.IsLeaf() {
		sb.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeNewick(sb, c)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(n.Label)
	fmt.Fprintf(sb, ":%g", n.Length)
}
