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
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// Matrix is a symmetric tip-by-tip distance matrix.
type Matrix struct {
	// Names are the tip names in idx (left-to-right) order; row and
	// column i both refer to Names[i].
	Names []string

	// Values is the row-major distance matrix; Values[i][j] is the
	// distance between Names[i] and Names[j].
	Values [][]float64
}

// At returns the distance between tips i and j.
func (m *Matrix) At(i, j int) float64 { return m.Values[i][j] }

// PatristicMatrix computes the all-pairs patristic distance matrix.
//
// Description:
//
//	One undirected single-source traversal per tip row, rows computed
//	in parallel by an errgroup bounded by GOMAXPROCS. Each row is
//	O(n), so the whole matrix is O(n * tips) with no shared mutable
//	state between rows. Context cancellation aborts between rows.
//
// Inputs:
//
//	ctx - Cancellation context. Checked once per row.
//	t   - The tree. Must not be mutated while rows are in flight.
//
// Outputs:
//
//	*Matrix - Branch-length distances.
func PatristicMatrix(ctx context.Context, t *tree.Tree) (*Matrix, error) {
	return buildMatrix(ctx, t, func(n *tree.Node) float64 { return n.Dist })
}

// TopoMatrix is PatristicMatrix with unit edge lengths: entries are
// edge counts along tip-to-tip paths. Quartet resolution uses this.
func TopoMatrix(ctx context.Context, t *tree.Tree) (*Matrix, error) {
	return buildMatrix(ctx, t, func(*tree.Node) float64 { return 1 })
}

func buildMatrix(ctx context.Context, t *tree.Tree, weight func(*tree.Node) float64) (*Matrix, error) {
	tips := t.Tips()
	m := &Matrix{
		Names:  t.TipNames(),
		Values: make([][]float64, len(tips)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range tips {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m.Values[i] = rowFromTip(t, tips[i], weight)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// rowFromTip runs one single-source traversal over the tree seen as an
// undirected weighted graph and collects distances at every tip.
func rowFromTip(t *tree.Tree, src *tree.Node, weight func(*tree.Node) float64) []float64 {
	row := make([]float64, t.NTips())
	dist := make([]float64, t.Len())
	seen := make([]bool, t.Len())

	stack := []*tree.Node{src}
	seen[src.Idx()] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			row[n.Idx()] = dist[n.Idx()]
		}
		// Neighbors: children plus parent. The edge weight always
		// comes from the lower (child-side) node of the edge.
		for _, c := range n.Children() {
			if !seen[c.Idx()] {
				seen[c.Idx()] = true
				dist[c.Idx()] = dist[n.Idx()] + weight(c)
				stack = append(stack, c)
			}
		}
		if p := n.Parent(); p != nil && !seen[p.Idx()] {
			seen[p.Idx()] = true
			dist[p.Idx()] = dist[n.Idx()] + weight(n)
			stack = append(stack, p)
		}
	}
	return row
}
