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

import "fmt"

// Reroot reroots the tree on the edge above the named node.
//
// Description:
//
//	A new root node is inserted on the edge between target and its
//	parent, splitting that edge 50/50 by default (WithRootDist changes
//	the fraction kept on the target's side). Parent/child orientation is
//	reversed along the path from the old root down to the insertion
//	point; edge lengths and support values travel with their edges, so
//	every bipartition keeps its support and the path length between any
//	two tips is unchanged. An old root left with a single child is
//	absorbed into that child (lengths summed).
//
// Inputs:
//
//	target - Name of the node above whose edge the new root goes. Tip
//	         names are resolved first, then internal node names.
//	opts   - WithInPlace, WithRootDist.
//
// Outputs:
//
//	*Tree - The rerooted tree (a copy unless WithInPlace). Nil on error.
//
// Errors:
//
//	ErrInvalidRerootTarget - target missing, is the current root, or is
//	                         the only child of a unifurcating root.
//	ErrInvalidOption       - root dist fraction outside [0, 1].
//
// Thread Safety: requires exclusive access to the receiver when
// WithInPlace is used.
func (t *Tree) Reroot(target string, opts ...MutateOption) (*Tree, error) {
	n, err := t.findByName(target)
	if err != nil {
		return nil, err
	}
	return t.RerootNode(n, opts...)
}

// RerootNode is Reroot addressing the target node directly. The node
// must belong to the receiver (matched by idx when a copy is mutated).
func (t *Tree) RerootNode(target *Node, opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	if target == nil || target.idx < 0 || target.idx >= len(t.nodes) || t.nodes[target.idx] != target {
		return nil, fmt.Errorf("%w: node not in this tree", ErrInvalidRerootTarget)
	}
	if target.parent == nil {
		return nil, fmt.Errorf("%w: target is the current root", ErrInvalidRerootTarget)
	}
	if target.parent == t.root && len(t.root.children) == 1 {
		return nil, fmt.Errorf("%w: target is the root's only child", ErrInvalidRerootTarget)
	}

	w := t.working(o)
	n := w.nodes[target.idx]
	p := n.parent
	edgeLen := n.Dist

	// Record the old root path and its edge bookkeeping before any edit.
	var path []*Node
	for x := p; x != nil; x = x.parent {
		path = append(path, x)
	}
	savedDist := make([]float64, len(path))
	savedSup := make([]*float64, len(path))
	for i, x := range path {
		savedDist[i] = x.Dist
		savedSup[i] = x.Support
	}

	n.detach()
	newRoot := NewNode("")
	newRoot.AddChild(n)
	newRoot.AddChild(p) // detaches p from path[1]
	n.Dist = edgeLen * o.rootFrac
	p.Dist = edgeLen * (1 - o.rootFrac)
	p.Support = copySupport(n.Support) // split edge: both halves carry it

	// Reverse orientation along the old root path. The edge between
	// path[i] and path[i-1] keeps its length and support; both now live
	// on path[i], the new lower end.
	for i := 1; i < len(path); i++ {
		par := path[i]
		child := path[i-1]
		par.detach()
		child.children = append(child.children, par)
		par.parent = child
		par.Dist = savedDist[i-1]
		par.Support = copySupport(savedSup[i-1])
	}

	// A bifurcating old root degenerates to a unifurcation; absorb it.
	old := path[len(path)-1]
	if len(old.children) == 1 {
		absorbUnary(old)
	}

	w.root = newRoot
	w.rebuild()
	return w, nil
}

// Unroot collapses a bifurcating root into a trifurcation.
//
// Description:
//
//	The internal child of the root is deleted and its children are
//	reattached to the root in its place; the sibling's edge absorbs the
//	deleted child's length, so the two halves of the former root edge
//	merge into the single edge an unrooted tree draws there. Support on
//	the merged edge survives (the sibling's own value wins when both
//	halves carry one).
//
// Errors:
//
//	ErrAlreadyUnrooted - root already has three or more children.
//	ErrDegenerateTree  - two-leaf tree, or a unifurcating root.
func (t *Tree) Unroot(opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(t.root.children) >= 3 {
		return nil, fmt.Errorf("%w: root has %d children", ErrAlreadyUnrooted, len(t.root.children))
	}
	if len(t.root.children) != 2 {
		return nil, fmt.Errorf("%w: root has %d children", ErrDegenerateTree, len(t.root.children))
	}
	var victim *Node
	for _, c := range t.root.children {
		if !c.IsLeaf() {
			victim = c
			break
		}
	}
	if victim == nil {
		return nil, fmt.Errorf("%w: cannot unroot a two-leaf tree", ErrDegenerateTree)
	}

	w := t.working(o)
	v := w.nodes[victim.idx]
	root := w.root

	var sibling *Node
	pos := 0
	for i, c := range root.children {
		if c == v {
			pos = i
		} else {
			sibling = c
		}
	}
	sibling.Dist += v.Dist
	if sibling.Support == nil {
		sibling.Support = copySupport(v.Support)
	}

	kids := v.Children()
	v.children = nil
	v.detach()
	root.insertChildrenAt(pos, kids)

	w.rebuild()
	return w, nil
}

// findByName resolves a node by name: tips first, then internal nodes.
func (t *Tree) findByName(name string) (*Node, error) {
	if n, ok := t.tipIndex[name]; ok {
		return n, nil
	}
	for _, n := range t.nodes[len(t.tips):] {
		if n.Name == name {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: no node named %q", ErrInvalidRerootTarget, name)
}

// absorbUnary splices a single-child node out of the tree: the child
// takes over the node's slot in its parent and the two edge lengths sum.
// The node must have a parent and exactly one child.
func absorbUnary(n *Node) {
	child := n.children[0]
	child.Dist += n.Dist
	if child.Support == nil {
		child.Support = copySupport(n.Support)
	}
	n.children = nil
	n.parent.replaceChild(n, child)
}

func copySupport(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
