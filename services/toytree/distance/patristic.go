// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package distance

import (
	"fmt"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// Patristic returns the sum of branch lengths on the path between two
// named tips.
//
// Description:
//
//	Classic LCA decomposition: walk from tip a to the root recording
//	cumulative distance per ancestor, then walk from tip b upward until
//	the first recorded ancestor. The path length is the sum of the two
//	half-paths. O(depth) time and space, no precomputation, which is
//	the right trade for one-off queries; use PatristicMatrix for
//	all-pairs work.
//
// Errors:
//
//	ErrUnknownTipName - either name is absent.
func Patristic(t *tree.Tree, a, b string) (float64, error) {
	ta, err := t.Tip(a)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTipName, a)
	}
	tb, err := t.Tip(b)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTipName, b)
	}
	if ta == tb {
		return 0, nil
	}

	// Dist lives on the child side of each edge, so climbing from cur
	// to its parent costs cur.Dist.
	upA := make(map[*tree.Node]float64)
	distA := 0.0
	cur := ta
	for anc := range t.Ancestors(ta) {
		distA += cur.Dist
		upA[anc] = distA
		cur = anc
	}

	distB := 0.0
	cur = tb
	for anc := range t.Ancestors(tb) {
		distB += cur.Dist
		if d, ok := upA[anc]; ok {
			return d + distB, nil
		}
		cur = anc
	}
	// Unreachable on a connected tree; the root is a common ancestor.
	return 0, fmt.Errorf("%w: %q and %q share no ancestor", ErrUnknownTipName, a, b)
}
