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

// Tree owns one root node plus rebuildable caches over the reachable set.
//
// Description:
//
//	Tree is a thin owner: all structure lives in the Node graph, and the
//	caches (idx-ordered node slice, tip slice, tip-name lookup) are
//	derived and rebuilt after every mutation. A monotonically increasing
//	version counter lets long-lived holders of borrowed nodes detect
//	staleness cheaply.
//
// Thread Safety: one writer OR any number of readers, never interleaved.
// Tree carries no internal locking; callers that share a Tree across
// goroutines must serialize mutators externally (the HTTP service layer
// does this with a per-tree RWMutex).
type Tree struct {
	root     *Node
	nodes    []*Node          // idx order: nodes[i].Idx() == i
	tips     []*Node          // left-to-right tip order, == nodes[:len(tips)]
	tipIndex map[string]*Node // first (lowest idx) tip per name
	version  uint64
}

// New wraps a constructed node graph in an indexed Tree.
//
// Description:
//
//	Takes ownership of the subtree rooted at root, which must be the
//	true root (nil parent). Assigns idx values and builds all caches.
//	This is the constructor the parser and the random-tree generators
//	use once their graph is complete.
//
// Inputs:
//
//	root - Root of a fully built node graph. Must not be nil.
//
// Outputs:
//
//	*Tree - Indexed tree owning root.
func New(root *Node) *Tree {
	if root == nil {
		panic("tree: New called with nil root")
	}
	root.detach()
	t := &Tree{root: root}
	t.rebuild()
	return t
}

// NewLeaf returns a single-node tree. The root is also the only tip.
func NewLeaf(name string) *Tree {
	return New(NewNode(name))
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the total node count.
func (t *Tree) Len() int { return len(t.nodes) }

// NTips returns the number of tips. A single-node tree has one tip.
func (t *Tree) NTips() int { return len(t.tips) }

// Version returns the mutation counter. It increases by one every time
// a mutator rebuilds the indexes; equal versions mean borrowed nodes
// are still valid.
func (t *Tree) Version() uint64 { return t.version }

// Node returns the node with the given idx.
//
// Errors: ErrUnknownNode if idx is outside [0, Len()).
func (t *Tree) Node(idx int) (*Node, error) {
	if idx < 0 || idx >= len(t.nodes) {
		return nil, fmt.Errorf("%w: %d (have %d nodes)", ErrUnknownNode, idx, len(t.nodes))
	}
	return t.nodes[idx], nil
}

// Tip returns the tip with the given name.
//
// Duplicate tip names are tolerated by the model; the lowest-idx match
// wins. Operations that require a tip-name bijection (RF, quartet)
// enforce uniqueness themselves.
//
// Errors: ErrUnknownTipName if no tip carries the name.
func (t *Tree) Tip(name string) (*Node, error) {
	n, ok := t.tipIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTipName, name)
	}
	return n, nil
}

// TipNames returns the tip names in idx (left-to-right) order.
func (t *Tree) TipNames() []string {
	out := make([]string, len(t.tips))
	for i, tip := range t.tips {
		out[i] = tip.Name
	}
	return out
}

// Tips returns a copy of the tip slice in idx order.
func (t *Tree) Tips() []*Node {
	out := make([]*Node, len(t.tips))
	copy(out, t.tips)
	return out
}

// IsRooted reports whether the root is a resolved bifurcation.
//
// A root with three or more children is the conventional encoding of an
// unrooted tree; a single-node tree is trivially rooted.
func (t *Tree) IsRooted() bool {
	return len(t.root.children) == 2 || len(t.nodes) == 1
}

// IsBifurcating reports whether every internal node has exactly two
// children (the root included).
func (t *Tree) IsBifurcating() bool {
	for n := range t.Preorder() {
		if len(n.children) != 0 && len(n.children) != 2 {
			return false
		}
	}
	return true
}

// TotalLength returns the sum of all branch lengths (the root's Dist
// excluded).
func (t *Tree) TotalLength() float64 {
	var sum float64
	for n := range t.Preorder() {
		if n.parent != nil {
			sum += n.Dist
		}
	}
	return sum
}

// MaxDepth returns the largest tip-to-root edge count.
func (t *Tree) MaxDepth() int {
	depth := make(map[*Node]int, len(t.nodes))
	max := 0
	for n := range t.Preorder() {
		if n.parent != nil {
			depth[n] = depth[n.parent] + 1
			if depth[n] > max {
				max = depth[n]
			}
		}
	}
	return max
}

// Copy returns a deep copy of the tree: fresh nodes, duplicated feature
// tables and support values, identical idx assignment and version reset
// to zero.
func (t *Tree) Copy() *Tree {
	c := &Tree{root: t.root.copySubtree()}
	c.reindexOnly()
	return c
}

// rebuild reassigns idx values and regenerates all caches, then bumps
// the version. Every mutator calls this exactly once, as its final step.
//
// Algorithm:
//
//	One explicit-stack postorder pass. Tips are numbered left-to-right
//	starting at 0 (postorder meets tips in exactly that order); internal
//	nodes are numbered from NTips() upward in completion order, which
//	puts the root at Len()-1 and makes ascending idx a bottom-up order.
//	Time O(n), space O(depth).
func (t *Tree) rebuild() {
	t.reindexOnly()
	t.version++
}

func (t *Tree) reindexOnly() {
	// Count first so internal numbering can start at ntips without a
	// second renumbering pass.
	total, ntips := 0, 0
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		if len(n.children) == 0 {
			ntips++
		}
		stack = append(stack, n.children...)
	}

	t.nodes = make([]*Node, total)
	t.tips = make([]*Node, 0, ntips)
	t.tipIndex = make(map[string]*Node, ntips)

	nextTip, nextInternal := 0, ntips

	type frame struct {
		n    *Node
		next int
	}
	fs := []frame{{n: t.root}}
	for len(fs) > 0 {
		f := &fs[len(fs)-1]
		if f.next < len(f.n.children) {
			child := f.n.children[f.next]
			f.next++
			fs = append(fs, frame{n: child})
			continue
		}
		n := f.n
		fs = fs[:len(fs)-1]
		if len(n.children) == 0 {
			n.idx = nextTip
			nextTip++
			t.tips = append(t.tips, n)
			if _, dup := t.tipIndex[n.Name]; !dup {
				t.tipIndex[n.Name] = n
			}
		} else {
			n.idx = nextInternal
			nextInternal++
		}
		t.nodes[n.idx] = n
	}
}
