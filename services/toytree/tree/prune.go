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
	"strings"
)

// DropTips removes the named tips and repairs the topology.
//
// Description:
//
//	Each named tip is detached, then the tree is repaired bottom-up:
//	internal nodes left childless are removed, internal nodes left with
//	a single child are spliced out (edge lengths summed), and a root
//	left with a single child is replaced by that child (whose own edge
//	length is absorbed, since a root has no edge). Path lengths between
//	all surviving tips are preserved.
//
// Inputs:
//
//	names - Tip names to remove. Every name must exist: partial
//	        corruption by silently ignoring typos is exactly the failure
//	        mode this API refuses.
//	opts  - WithInPlace.
//
// Outputs:
//
//	*Tree - The pruned tree (a copy unless WithInPlace). Nil on error.
//
// Errors:
//
//	ErrNoMatchingTips - names is empty.
//	ErrUnknownTipName - one or more names not present (all offenders listed).
//	ErrDegenerateTree - fewer than two tips would survive.
func (t *Tree) DropTips(names []string, opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty tip selector", ErrNoMatchingTips)
	}

	var unknown []string
	victims := make(map[int]bool, len(names))
	for _, name := range names {
		n, ok := t.tipIndex[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		victims[n.idx] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTipName, strings.Join(unknown, ", "))
	}
	if len(t.tips)-len(victims) < 2 {
		return nil, fmt.Errorf("%w: %d of %d tips would survive",
			ErrDegenerateTree, len(t.tips)-len(victims), len(t.tips))
	}

	w := t.working(o)
	w.dropByIdx(victims)
	return w, nil
}

// DropTipsIf removes every tip the predicate matches.
//
// Same repair and degeneracy rules as DropTips. A predicate matching
// nothing fails with ErrNoMatchingTips rather than silently no-op'ing.
func (t *Tree) DropTipsIf(match func(*Node) bool, opts ...MutateOption) (*Tree, error) {
	o, err := applyMutateOptions(opts)
	if err != nil {
		return nil, err
	}
	victims := make(map[int]bool)
	for _, tip := range t.tips {
		if match(tip) {
			victims[tip.idx] = true
		}
	}
	if len(victims) == 0 {
		return nil, fmt.Errorf("%w: predicate matched no tips", ErrNoMatchingTips)
	}
	if len(t.tips)-len(victims) < 2 {
		return nil, fmt.Errorf("%w: %d of %d tips would survive",
			ErrDegenerateTree, len(t.tips)-len(victims), len(t.tips))
	}

	w := t.working(o)
	w.dropByIdx(victims)
	return w, nil
}

// dropByIdx performs the actual removal and repair on w. Inputs are
// validated; this cannot fail.
func (w *Tree) dropByIdx(victims map[int]bool) {
	for idx := range victims {
		tip := w.nodes[idx]
		parent := tip.parent
		tip.detach()
		w.repairUpward(parent)
	}
	w.rebuild()
}

// repairUpward walks from n toward the root removing empty internal
// nodes and splicing out unary ones.
func (w *Tree) repairUpward(n *Node) {
	for n != nil {
		parent := n.parent
		switch {
		case len(n.children) == 0 && parent != nil:
			// Internal node lost all descendants.
			n.detach()
		case len(n.children) == 1 && parent != nil:
			absorbUnary(n)
		case len(n.children) == 1 && parent == nil:
			// Root down to a single child: the child takes over as
			// root. Its edge vanishes with the promotion, and the
			// support that annotated that edge goes with it.
			child := n.children[0]
			child.parent = nil
			child.Dist = 0
			child.Support = nil
			n.children = nil
			w.root = child
		}
		n = parent
	}
}
