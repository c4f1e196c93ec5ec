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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildUnladdered constructs ((A,C),B); — the big clade first.
func buildUnladdered() *Tree {
	inner := NewNode("")
	inner.AddChild(NewNode("A"))
	inner.AddChild(NewNode("C"))
	root := NewNode("")
	root.AddChild(inner)
	root.AddChild(NewNode("B"))
	return New(root)
}

func TestLadderize_SmallestCladeFirst(t *testing.T) {
	tr := buildUnladdered()

	got, err := tr.Ladderize()
	require.NoError(t, err)

	// B (size 1) moves before the AC clade (size 2).
	assert.Equal(t, []string{"B", "A", "C"}, got.TipNames())
	assert.Equal(t, "B", got.Root().Child(0).Name)

	// Source order untouched.
	assert.Equal(t, []string{"A", "C", "B"}, tr.TipNames())
}

func TestLadderize_Descending(t *testing.T) {
	tr := buildUnladdered()

	got, err := tr.Ladderize(WithDescending())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, got.TipNames())
}

func TestLadderize_NameTieBreakIsRotationIndependent(t *testing.T) {
	// Two size-2 clades in both rotations must ladderize identically.
	build := func(flip bool) *Tree {
		ab := NewNode("")
		ab.AddChild(NewNode("A"))
		ab.AddChild(NewNode("B"))
		cd := NewNode("")
		cd.AddChild(NewNode("C"))
		cd.AddChild(NewNode("D"))
		root := NewNode("")
		if flip {
			root.AddChild(cd)
			root.AddChild(ab)
		} else {
			root.AddChild(ab)
			root.AddChild(cd)
		}
		return New(root)
	}

	g1, err := build(false).Ladderize()
	require.NoError(t, err)
	g2, err := build(true).Ladderize()
	require.NoError(t, err)
	assert.Equal(t, g1.TipNames(), g2.TipNames())
	assert.Equal(t, []string{"A", "B", "C", "D"}, g1.TipNames())
}

func TestLadderize_StableTieBreakKeepsOrder(t *testing.T) {
	tr := buildUnladdered()
	flipped, err := tr.Ladderize(WithDescending())
	require.NoError(t, err)

	got, err := flipped.Ladderize(WithDescending(), WithTieBreak(TieBreakStable))
	require.NoError(t, err)
	assert.Equal(t, flipped.TipNames(), got.TipNames())
}

func TestResolvePolytomy_LadderDefault(t *testing.T) {
	root := NewNode("")
	for _, name := range []string{"A", "B", "C", "D"} {
		n := NewNode(name)
		n.Dist = 1
		root.AddChild(n)
	}
	tr := New(root)
	require.False(t, tr.IsBifurcating())

	got, err := tr.ResolvePolytomy()
	require.NoError(t, err)
	assert.True(t, got.IsBifurcating())
	assert.Equal(t, []string{"A", "B", "C", "D"}, got.TipNames())
	assert.Equal(t, 7, got.Len())

	// Inserted joints are anonymous zero-length edges; original edge
	// lengths survive, so the total is unchanged.
	assert.Equal(t, tr.TotalLength(), got.TotalLength())
	for n := range got.Preorder() {
		if !n.IsLeaf() && !n.IsRoot() {
			assert.Equal(t, "", n.Name)
			assert.Equal(t, 0.0, n.Dist)
			assert.Nil(t, n.Support)
		}
	}
}

func TestResolvePolytomy_SeededIsDeterministic(t *testing.T) {
	build := func() *Tree {
		root := NewNode("")
		for _, name := range []string{"A", "B", "C", "D", "E"} {
			root.AddChild(NewNode(name))
		}
		return New(root)
	}

	g1, err := build().ResolvePolytomy(WithResolveSeed(7))
	require.NoError(t, err)
	g2, err := build().ResolvePolytomy(WithResolveSeed(7))
	require.NoError(t, err)
	assert.Equal(t, g1.TipNames(), g2.TipNames())
	assert.True(t, g1.IsBifurcating())
	assert.True(t, g2.IsBifurcating())
}

func TestCollapseNode_ReattachesChildren(t *testing.T) {
	// Name the BC clade so it can be addressed.
	tr := buildFiveNode()
	x, err := tr.Node(3)
	require.NoError(t, err)
	x.Name = "bc"

	got, err := tr.CollapseNode("bc")
	require.NoError(t, err)
	require.Equal(t, 3, got.Root().ChildCount())
	assert.Equal(t, 4, got.Len())

	// Children absorbed the collapsed edge's length.
	b, _ := got.Tip("B")
	c, _ := got.Tip("C")
	assert.Equal(t, 6.0, b.Dist)
	assert.Equal(t, 7.0, c.Dist)
	assert.InDelta(t, tipDistance(tr, "A", "B"), tipDistance(got, "A", "B"), 1e-12)
}

func TestCollapseNode_Errors(t *testing.T) {
	tr := buildFiveNode()

	_, err := tr.CollapseNode("missing")
	assert.ErrorIs(t, err, ErrInvalidCollapseTarget)

	_, err = tr.CollapseNode("A") // a tip
	assert.ErrorIs(t, err, ErrInvalidCollapseTarget)
}

func TestCollapseLowSupport_Threshold(t *testing.T) {
	tr := buildFiveNode() // BC clade carries support 90

	kept, err := tr.CollapseLowSupport(50)
	require.NoError(t, err)
	assert.Equal(t, 5, kept.Len())

	gone, err := tr.CollapseLowSupport(95)
	require.NoError(t, err)
	assert.Equal(t, 4, gone.Len())
	assert.Equal(t, 3, gone.Root().ChildCount())

	// Unannotated edges are never collapsed.
	plain := buildUnladdered()
	same, err := plain.CollapseLowSupport(101)
	require.NoError(t, err)
	assert.Equal(t, plain.Len(), same.Len())
}
