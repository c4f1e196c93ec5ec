// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree implements the core phylogenetic tree data model: nodes,
// the owning Tree container with rebuildable indexes, deterministic
// traversal orders, and the topology mutators (reroot, unroot, prune,
// ladderize, polytomy resolution, node collapse).
//
// # Ownership model
//
// A Node owns its children (ordered, left-to-right source order) and
// holds a non-owning back-reference to its parent. The Tree owns the
// root and therefore the whole reachable set; nodes obtained from
// traversal are borrowed views that stay valid until the next mutation.
//
// # Index discipline
//
// Every node carries a dense integer idx assigned at index-build time:
// tips occupy [0, NTips()) in left-to-right order, internal nodes occupy
// [NTips(), Len()) in postorder completion order, and the root is always
// Len()-1. Ascending idx is therefore a valid bottom-up (postorder
// compatible) processing order. Every public mutator reassigns idx and
// rebuilds the caches as its final step.
package tree

import "sort"

// Node is one vertex of a rooted, ordered, possibly polytomous tree.
//
// Name, Dist and Support are plain data and may be set directly; the
// structural fields (parent, children, idx) are managed by the Tree and
// the mutators and are only reachable through accessors.
type Node struct {
	// Name is the node label. Tip names identify taxa; internal names
	// are rare and usually clade labels. May be empty.
	Name string

	// Dist is the branch length to the parent, 0 when absent in the
	// source text. Meaningless for the root.
	Dist float64

	// Support is the optional support value (bootstrap, posterior) of
	// the edge above this node. Nil when absent.
	Support *float64

	parent   *Node
	children []*Node
	idx      int
	features map[string]FeatureValue
}

// NewNode returns a detached node with the given name.
func NewNode(name string) *Node {
	return &Node{Name: name, idx: -1}
}

// Parent returns the parent node, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the ordered child slice.
//
// The copy keeps callers from accidentally editing the topology; use
// the mutators for structural change.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Idx returns the dense index assigned at the last index build, or -1
// for a node that has never been attached to an indexed Tree.
func (n *Node) Idx() int { return n.idx }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// AddChild appends c as the rightmost child of n and sets its parent
// back-reference.
//
// Description:
//
//	This is the construction primitive the parser and the generators
//	use. It does not rebuild any Tree index; callers building a graph
//	by hand must wrap the finished root in New to obtain an indexed
//	Tree. Attaching a node that already has a parent is a programming
//	error; the node is first detached to keep the single-parent
//	invariant.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.detach()
	}
	c.parent = n
	n.children = append(n.children, c)
}

// SetSupport sets the support value from a plain float.
func (n *Node) SetSupport(v float64) {
	n.Support = &v
}

// SetFeature attaches or replaces one feature value.
func (n *Node) SetFeature(key string, v FeatureValue) {
	if n.features == nil {
		n.features = make(map[string]FeatureValue, 4)
	}
	n.features[key] = v
}

// Feature returns the value for key and whether it was present.
func (n *Node) Feature(key string) (FeatureValue, bool) {
	v, ok := n.features[key]
	return v, ok
}

// DeleteFeature removes a feature if present.
func (n *Node) DeleteFeature(key string) {
	delete(n.features, key)
}

// FeatureKeys returns the feature keys in sorted order.
func (n *Node) FeatureKeys() []string {
	if len(n.features) == 0 {
		return nil
	}
	keys := make([]string, 0, len(n.features))
	for k := range n.features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// detach removes n from its parent's child slice and clears the
// back-reference. No-op at the root.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// replaceChild swaps old for repl in n's child slice, preserving the
// position, and fixes both back-references.
func (n *Node) replaceChild(old, repl *Node) {
	for i, c := range n.children {
		if c == old {
			n.children[i] = repl
			repl.parent = n
			old.parent = nil
			return
		}
	}
}

// insertChildAt splices children into n's child slice at position i,
// setting parent back-references.
func (n *Node) insertChildrenAt(i int, nodes []*Node) {
	for _, c := range nodes {
		c.parent = n
	}
	rest := append([]*Node{}, n.children[i:]...)
	n.children = append(n.children[:i], nodes...)
	n.children = append(n.children, rest...)
}

// copySubtree deep-copies the subtree rooted at n using an explicit
// stack. Features maps and Support pointers are duplicated so the copy
// shares no mutable state with the original. idx values are preserved.
func (n *Node) copySubtree() *Node {
	cloneOne := func(src *Node) *Node {
		c := &Node{
			Name: src.Name,
			Dist: src.Dist,
			idx:  src.idx,
		}
		if src.Support != nil {
			s := *src.Support
			c.Support = &s
		}
		if len(src.features) > 0 {
			c.features = make(map[string]FeatureValue, len(src.features))
			for k, v := range src.features {
				c.features[k] = v
			}
		}
		return c
	}

	root := cloneOne(n)
	type frame struct {
		src *Node
		dst *Node
	}
	stack := []frame{{src: n, dst: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range f.src.children {
			cc := cloneOne(child)
			cc.parent = f.dst
			f.dst.children = append(f.dst.children, cc)
			stack = append(stack, frame{src: child, dst: cc})
		}
	}
	return root
}
