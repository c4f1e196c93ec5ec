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
	"fmt"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// QuartetOption configures quartet distance computation.
type QuartetOption func(*quartetOptions)

type quartetOptions struct {
	maxTips int
}

// DefaultMaxQuartetTips caps exact quartet enumeration. C(64,4) is
// about 635k quartets, which keeps the CLI and API interactive.
const DefaultMaxQuartetTips = 64

// WithMaxQuartetTips raises or lowers the tip cap for exact
// enumeration. 0 disables the cap.
func WithMaxQuartetTips(n int) QuartetOption {
	return func(o *quartetOptions) { o.maxTips = n }
}

// QuartetResult is the outcome of a quartet distance comparison.
type QuartetResult struct {
	// Different counts 4-tip subsets whose induced unrooted topology
	// differs between the two trees.
	Different int

	// Total is C(n, 4) over the shared tip set.
	Total int

	// Normalized is Different / Total, or 0 when Total is 0.
	Normalized float64
}

// Quartet computes the quartet distance between two trees.
//
// Description:
//
//	Exact enumeration of all C(n,4) tip subsets. Each quartet's
//	unrooted topology is resolved from topological (edge-count) path
//	lengths: ab|cd holds iff d(a,b)+d(c,d) is strictly smaller than
//	both alternative pairings; a tie means the quartet is unresolved
//	(a star) in that tree, which counts as different from any resolved
//	topology and equal to another star. The two n-by-n topological
//	matrices are precomputed in parallel, so the enumeration itself is
//	pure arithmetic.
//
// Errors:
//
//	ErrTipSetMismatch    - tip-name sets differ.
//	ErrDuplicateTipNames - either tree lacks a tip-name bijection.
//	ErrTooManyTips       - tip count above the enumeration cap.
func Quartet(ctx context.Context, a, b *tree.Tree, opts ...QuartetOption) (QuartetResult, error) {
	o := quartetOptions{maxTips: DefaultMaxQuartetTips}
	for _, opt := range opts {
		opt(&o)
	}
	if err := requireSameTips(a, b); err != nil {
		return QuartetResult{}, err
	}
	if _, _, err := tipUniverse(a); err != nil {
		return QuartetResult{}, err
	}
	n := a.NTips()
	if o.maxTips > 0 && n > o.maxTips {
		return QuartetResult{}, fmt.Errorf("%w: %d tips (cap %d)", ErrTooManyTips, n, o.maxTips)
	}

	ma, err := TopoMatrix(ctx, a)
	if err != nil {
		return QuartetResult{}, err
	}
	mb, err := TopoMatrix(ctx, b)
	if err != nil {
		return QuartetResult{}, err
	}
	// Rows of the two matrices are in each tree's own tip order; remap
	// the second onto the first's name order.
	remap := make([]int, n)
	posB := make(map[string]int, n)
	for i, name := range mb.Names {
		posB[name] = i
	}
	for i, name := range ma.Names {
		remap[i] = posB[name]
	}

	res := QuartetResult{}
	for i := 0; i < n-3; i++ {
		for j := i + 1; j < n-2; j++ {
			for k := j + 1; k < n-1; k++ {
				for l := k + 1; l < n; l++ {
					res.Total++
					ta := quartetTopology(ma, i, j, k, l)
					tb := quartetTopology2(mb, remap, i, j, k, l)
					if ta != tb {
						res.Different++
					}
				}
			}
		}
	}
	if res.Total > 0 {
		res.Normalized = float64(res.Different) / float64(res.Total)
	}
	return res, nil
}

// Quartet topologies: 0 = ij|kl, 1 = ik|jl, 2 = il|jk, 3 = unresolved.
func quartetTopology(m *Matrix, i, j, k, l int) int {
	return resolveQuartet(
		m.At(i, j)+m.At(k, l),
		m.At(i, k)+m.At(j, l),
		m.At(i, l)+m.At(j, k),
	)
}

func quartetTopology2(m *Matrix, remap []int, i, j, k, l int) int {
	i, j, k, l = remap[i], remap[j], remap[k], remap[l]
	return resolveQuartet(
		m.At(i, j)+m.At(k, l),
		m.At(i, k)+m.At(j, l),
		m.At(i, l)+m.At(j, k),
	)
}

// resolveQuartet applies the four-point condition on the three pairing
// sums: the unique strict minimum names the split; no unique minimum
// means a star quartet.
func resolveQuartet(s0, s1, s2 float64) int {
	sums := []float64{s0, s1, s2}
	minIdx := 0
	for i := 1; i < 3; i++ {
		if sums[i] < sums[minIdx] {
			minIdx = i
		}
	}
	ties := 0
	for i := 0; i < 3; i++ {
		if sums[i] == sums[minIdx] {
			ties++
		}
	}
	if ties > 1 {
		return 3
	}
	return minIdx
}
