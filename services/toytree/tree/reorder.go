// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import (
	"fmt"
	"math/rand"
	"sort"
)

// Ladderize reorders every internal node's children by subtree size.
//
// Description:
//
//	Children are stably sorted by descendant tip count, smallest clade
//	first by default (WithDescending flips). Equal-sized siblings are
//	ordered by the tie-break policy: TieBreakNames (default) compares
//	their minimum descendant tip names, which gives rotation-independent
//	output; TieBreakStable keeps their current relative order. Pure
//	reordering: the tip set and all edge lengths are untouched, only
//	child order (and therefore idx assignment) changes.
//
// Outputs:
//
//	*Tree - The ladderized tree (a copy unless WithInPlace).
//
// Errors: ErrInvalidOption for an unknown tie-break policy.
func (t *Tree) Ladderize(opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	w := t.working(o)

	// One bottom-up pass computes tip counts and minimum descendant tip
	// names; a second reorders. Idxorder on the working tree is valid
	// here because nothing structural has changed yet.
	size := make([]int, len(w.nodes))
	minName := make([]string, len(w.nodes))
	for n := range w.Idxorder() {
		if n.IsLeaf() {
			size[n.idx] = 1
			minName[n.idx] = n.Name
			continue
		}
		for _, c := range n.children {
			size[n.idx] += size[c.idx]
			if minName[n.idx] == "" || (minName[c.idx] != "" && minName[c.idx] < minName[n.idx]) {
				minName[n.idx] = minName[c.idx]
			}
		}
	}

	for n := range w.Idxorder() {
		if len(n.children) < 2 {
			continue
		}
		sort.SliceStable(n.children, func(i, j int) bool {
			a, b := n.children[i], n.children[j]
			if size[a.idx] != size[b.idx] {
				if o.descending {
					return size[a.idx] > size[b.idx]
				}
				return size[a.idx] < size[b.idx]
			}
			if o.tieBreak == TieBreakNames {
				return minName[a.idx] < minName[b.idx]
			}
			return false
		})
	}

	w.rebuild()
	return w, nil
}

// ResolvePolytomy expands every multifurcation into bifurcations.
//
// Description:
//
//	Each node with more than two children is rewritten as a cascade of
//	bifurcations joined by zero-length edges. The default strategy is
//	ladder-style: the first two children join, the joint joins the
//	third, and so on in current child order. WithResolveSeed switches to
//	random join order drawn from a seeded source, for topology
//	null-model work that needs reproducible randomness. Inserted nodes
//	carry no name, support, or features. Tip set, tip names, and all
//	original edge lengths are preserved.
//
// Outputs:
//
//	*Tree - Strictly bifurcating tree (a copy unless WithInPlace).
func (t *Tree) ResolvePolytomy(opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	w := t.working(o)

	var rng *rand.Rand
	if o.seed != nil {
		rng = rand.New(rand.NewSource(*o.seed))
	}

	// Collect polytomies first: resolving edits child slices, and the
	// cached idx order stays valid only until the first edit.
	var poly []*Node
	for n := range w.Idxorder() {
		if len(n.children) > 2 {
			poly = append(poly, n)
		}
	}
	for _, n := range poly {
		for len(n.children) > 2 {
			i, j := 0, 1
			if rng != nil {
				i = rng.Intn(len(n.children))
				j = rng.Intn(len(n.children) - 1)
				if j >= i {
					j++
				}
				if i > j {
					i, j = j, i
				}
			}
			a, b := n.children[i], n.children[j]
			joint := NewNode("")
			b.detach()
			a.detach()
			joint.AddChild(a)
			joint.AddChild(b)
			// Zero-length inserted edge.
			n.insertChildrenAt(i, []*Node{joint})
		}
	}

	w.rebuild()
	return w, nil
}

// CollapseNode deletes the named internal node, reattaching its
// children to its parent in place.
//
// Description:
//
//	The node's children gain its edge length, so path lengths between
//	all surviving nodes are preserved; the node's own bipartition
//	disappears. This is the edge-collapse primitive behind support
//	thresholding and RF perturbation tests.
//
// Errors:
//
//	ErrInvalidCollapseTarget - name missing, names the root, or names a tip.
func (t *Tree) CollapseNode(target string, opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	n, err := t.findByName(target)
	if err != nil {
		return nil, fmt.Errorf("%w: no node named %q", ErrInvalidCollapseTarget, target)
	}
	if n.parent == nil {
		return nil, fmt.Errorf("%w: cannot collapse the root", ErrInvalidCollapseTarget)
	}
	if n.IsLeaf() {
		return nil, fmt.Errorf("%w: %q is a tip", ErrInvalidCollapseTarget, target)
	}

	w := t.working(o)
	collapse(w.nodes[n.idx])
	w.rebuild()
	return w, nil
}

// CollapseLowSupport collapses every internal edge whose support is set
// and below threshold. Edges with no support value are kept. Collapsing
// nothing is not an error; the tree comes back unchanged (modulo copy).
func (t *Tree) CollapseLowSupport(threshold float64, opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	w := t.working(o)

	var weak []*Node
	for n := range w.Idxorder() {
		if !n.IsLeaf() && n.parent != nil && n.Support != nil && *n.Support < threshold {
			weak = append(weak, n)
		}
	}
	for _, n := range weak {
		collapse(n)
	}

	w.rebuild()
	return w, nil
}

// collapse splices an internal non-root node out, its children taking
// its place (and absorbing its edge length).
func collapse(n *Node) {
	parent := n.parent
	pos := 0
	for i, c := range parent.children {
		if c == n {
			pos = i
			break
		}
	}
	kids := n.Children()
	for _, c := range kids {
		c.Dist += n.Dist
	}
	n.children = nil
	n.detach()
	parent.insertChildrenAt(pos, kids)
}
