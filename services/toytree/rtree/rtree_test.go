// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

func TestImbalanced_CaterpillarShape(t *testing.T) {
	tr, err := Imbalanced(6)
	require.NoError(t, err)

	assert.Equal(t, 6, tr.NTips())
	assert.Equal(t, 11, tr.Len())
	assert.True(t, tr.IsBifurcating())
	// A caterpillar's depth equals ntips-1.
	assert.Equal(t, 5, tr.MaxDepth())
	assert.ElementsMatch(t, []string{"r0", "r1", "r2", "r3", "r4", "r5"}, tr.TipNames())

	for n := range tr.Preorder() {
		if !n.IsRoot() {
			assert.Equal(t, 1.0, n.Dist)
		}
	}
}

func TestBalanced_EvenSplit(t *testing.T) {
	tr, err := Balanced(8)
	require.NoError(t, err)

	assert.Equal(t, 8, tr.NTips())
	assert.True(t, tr.IsBifurcating())
	// 8 tips halve perfectly: every tip sits at depth 3.
	for _, tip := range tr.Tips() {
		depth := 0
		for range tr.Ancestors(tip) {
			depth++
		}
		assert.Equal(t, 3, depth, tip.Name)
	}

	// Uneven counts still produce a binary tree with depth ceil(log2 n)+?
	tr, err = Balanced(5)
	require.NoError(t, err)
	assert.Equal(t, 5, tr.NTips())
	assert.True(t, tr.IsBifurcating())
	assert.Equal(t, 3, tr.MaxDepth())
}

func TestRandom_SeededIsDeterministic(t *testing.T) {
	t1, err := Random(16, WithSeed(42))
	require.NoError(t, err)
	t2, err := Random(16, WithSeed(42))
	require.NoError(t, err)

	s1, err := newick.WriteString(t1)
	require.NoError(t, err)
	s2, err := newick.WriteString(t2)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	t3, err := Random(16, WithSeed(43))
	require.NoError(t, err)
	s3, err := newick.WriteString(t3)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)
}

func TestRandom_Invariants(t *testing.T) {
	tr, err := Random(20, WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, 20, tr.NTips())
	assert.Equal(t, 39, tr.Len())
	assert.True(t, tr.IsBifurcating())
	assert.True(t, tr.IsRooted())
	for n := range tr.Preorder() {
		if !n.IsRoot() {
			assert.Greater(t, n.Dist, 0.0)
			assert.LessOrEqual(t, n.Dist, 1.0)
		}
	}
}

func TestUnit_AllBranchesOne(t *testing.T) {
	tr, err := Unit(10, WithSeed(7))
	require.NoError(t, err)
	for n := range tr.Preorder() {
		if !n.IsRoot() {
			assert.Equal(t, 1.0, n.Dist)
		}
	}
}

func TestCoal_Ultrametric(t *testing.T) {
	tr, err := Coal(12, 1e5, WithSeed(9))
	require.NoError(t, err)

	assert.Equal(t, 12, tr.NTips())
	assert.True(t, tr.IsBifurcating())

	// All tips sit at the same height above the present.
	heights := make([]float64, 0, 12)
	for _, tip := range tr.Tips() {
		h := tip.Dist
		for anc := range tr.Ancestors(tip) {
			h += anc.Dist
		}
		heights = append(heights, h)
	}
	for _, h := range heights[1:] {
		assert.InDelta(t, heights[0], h, heights[0]*1e-9)
	}
}

func TestCoal_BadNe(t *testing.T) {
	_, err := Coal(5, 0, WithSeed(1))
	assert.Error(t, err)
	_, err = Coal(5, -3, WithSeed(1))
	assert.Error(t, err)
}

func TestGenerators_TooFewTips(t *testing.T) {
	for name, gen := range map[string]func() (*tree.Tree, error){
		"imbalanced": func() (*tree.Tree, error) { return Imbalanced(1) },
		"balanced":   func() (*tree.Tree, error) { return Balanced(0) },
		"random":     func() (*tree.Tree, error) { return Random(1) },
		"unit":       func() (*tree.Tree, error) { return Unit(1) },
		"coal":       func() (*tree.Tree, error) { return Coal(1, 1) },
	} {
		_, err := gen()
		assert.ErrorIs(t, err, ErrTooFewTips, name)
	}
}

func TestWithTipPrefix(t *testing.T) {
	tr, err := Unit(3, WithSeed(5), WithTipPrefix("taxon_"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"taxon_0", "taxon_1", "taxon_2"}, tr.TipNames())
}
