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

import "iter"

// Order names a deterministic traversal order.
type Order string

const (
	// Preorder visits a node before its children, children left-to-right.
	Preorder Order = "preorder"

	// Postorder visits children (left-to-right) before the node.
	Postorder Order = "postorder"

	// Levelorder visits nodes breadth-first, root first.
	Levelorder Order = "levelorder"

	// Idxorder visits nodes by ascending idx: all tips left-to-right,
	// then internals bottom-up, root last. On an unmutated tree this is
	// the cheapest bottom-up order (a cached postorder-compatible walk).
	Idxorder Order = "idxorder"
)

// Preorder returns a lazy root-first sequence over the whole tree.
//
// Description:
//
//	All traversal sequences are restartable (each range statement walks
//	again from the root), honor early break, never mutate the tree, and
//	use explicit stacks so depth-100k trees walk in constant goroutine
//	stack space. They borrow from the Tree: re-range after any mutator
//	call, and use Version() to detect staleness across call boundaries.
//
// Thread Safety: safe to run any number of traversals concurrently as
// long as no mutator runs during them.
func (t *Tree) Preorder() iter.Seq[*Node] {
	return t.root.preorder()
}

// Postorder returns a lazy children-first sequence over the whole tree.
func (t *Tree) Postorder() iter.Seq[*Node] {
	return t.root.postorder()
}

// Levelorder returns a lazy breadth-first sequence over the whole tree.
func (t *Tree) Levelorder() iter.Seq[*Node] {
	return t.root.levelorder()
}

// Idxorder returns a sequence over the cached idx-ordered node slice.
func (t *Tree) Idxorder() iter.Seq[*Node] {
	nodes := t.nodes
	return func(yield func(*Node) bool) {
		for _, n := range nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Traverse returns the named order over the whole tree. Unknown orders
// fall back to Idxorder, the cheapest.
func (t *Tree) Traverse(order Order) iter.Seq[*Node] {
	switch order {
	case Preorder:
		return t.Preorder()
	case Postorder:
		return t.Postorder()
	case Levelorder:
		return t.Levelorder()
	default:
		return t.Idxorder()
	}
}

// Ancestors returns the chain from n's parent up to and including the
// root. Empty for the root itself.
func (t *Tree) Ancestors(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for a := n.parent; a != nil; a = a.parent {
			if !yield(a) {
				return
			}
		}
	}
}

// Traverse returns the named order restricted to the subtree rooted at n.
//
// Idxorder at the subtree level degrades to a postorder walk, since the
// cached slice covers the whole tree.
func (n *Node) Traverse(order Order) iter.Seq[*Node] {
	switch order {
	case Preorder:
		return n.preorder()
	case Levelorder:
		return n.levelorder()
	default:
		return n.postorder()
	}
}

func (n *Node) preorder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := []*Node{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
			// Push right-to-left so children pop left-to-right.
			for i := len(cur.children) - 1; i >= 0; i-- {
				stack = append(stack, cur.children[i])
			}
		}
	}
}

func (n *Node) postorder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		type frame struct {
			n    *Node
			next int
		}
		stack := []frame{{n: n}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(f.n.children) {
				child := f.n.children[f.next]
				f.next++
				stack = append(stack, frame{n: child})
				continue
			}
			cur := f.n
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
		}
	}
}

func (n *Node) levelorder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		queue := []*Node{n}
		for head := 0; head < len(queue); head++ {
			cur := queue[head]
			if !yield(cur) {
				return
			}
			queue = append(queue, cur.children...)
		}
	}
}
