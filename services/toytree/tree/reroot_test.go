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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tipDistance sums edge lengths on the path between two tips.
func tipDistance(t *Tree, a, b string) float64 {
	na, _ := t.Tip(a)
	nb, _ := t.Tip(b)
	up := map[*Node]float64{}
	d := 0.0
	for n := na; n != nil; n = n.Parent() {
		up[n] = d
		d += n.Dist
	}
	d = 0.0
	for n := nb; n != nil; n = n.Parent() {
		if base, ok := up[n]; ok {
			return base + d
		}
		d += n.Dist
	}
	return -1
}

func sortedTips(t *Tree) []string {
	out := t.TipNames()
	sort.Strings(out)
	return out
}

func TestReroot_OnTipSplitsEdgeEvenly(t *testing.T) {
	tr := buildFiveNode()

	got, err := tr.Reroot("B")
	require.NoError(t, err)

	// Copy-by-default: the source is untouched.
	assert.Equal(t, 5, tr.Len())
	assert.Same(t, tr.Root(), tr.nodes[4])

	require.Equal(t, 2, got.Root().ChildCount())
	b, err := got.Tip("B")
	require.NoError(t, err)
	assert.Same(t, got.Root(), b.Parent())
	assert.Equal(t, 1.0, b.Dist) // B's edge of 2 split 50/50

	assert.Equal(t, sortedTips(tr), sortedTips(got))
	assert.InDelta(t, tr.TotalLength(), got.TotalLength(), 1e-12)
}

func TestReroot_PreservesTipPathLengths(t *testing.T) {
	tr := buildFiveNode()
	pairs := [][2]string{{"A", "B"}, {"A", "C"}, {"B", "C"}}
	want := map[[2]string]float64{}
	for _, p := range pairs {
		want[p] = tipDistance(tr, p[0], p[1])
	}

	for _, target := range []string{"A", "B", "C"} {
		got, err := tr.Reroot(target)
		require.NoError(t, err, "reroot on %s", target)
		for _, p := range pairs {
			assert.InDelta(t, want[p], tipDistance(got, p[0], p[1]), 1e-12,
				"path %v after reroot on %s", p, target)
		}
	}
}

func TestReroot_SupportTravelsWithEdge(t *testing.T) {
	tr := buildFiveNode()

	got, err := tr.Reroot("C")
	require.NoError(t, err)

	// The BC bipartition no longer exists as a clade, but the edge that
	// carried support 90 still does; exactly the nodes bounding it keep
	// the value.
	var supports []float64
	for n := range got.Preorder() {
		if n.Support != nil {
			supports = append(supports, *n.Support)
		}
	}
	require.NotEmpty(t, supports)
	for _, s := range supports {
		assert.Equal(t, 90.0, s)
	}
}

func TestReroot_WithRootDistFraction(t *testing.T) {
	tr := buildFiveNode()

	got, err := tr.Reroot("B", WithRootDist(0.25))
	require.NoError(t, err)
	b, _ := got.Tip("B")
	assert.InDelta(t, 0.5, b.Dist, 1e-12) // 2 * 0.25

	_, err = tr.Reroot("B", WithRootDist(1.5))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestReroot_InPlace(t *testing.T) {
	tr := buildFiveNode()
	v0 := tr.Version()

	got, err := tr.Reroot("B", WithInPlace())
	require.NoError(t, err)
	assert.Same(t, tr, got)
	assert.Equal(t, v0+1, tr.Version())
}

func TestReroot_InvalidTargets(t *testing.T) {
	tr := buildFiveNode()

	_, err := tr.Reroot("nope")
	assert.ErrorIs(t, err, ErrInvalidRerootTarget)

	_, err = tr.RerootNode(tr.Root())
	assert.ErrorIs(t, err, ErrInvalidRerootTarget)

	_, err = tr.RerootNode(nil)
	assert.ErrorIs(t, err, ErrInvalidRerootTarget)

	// A node from a different tree is rejected even when idx is in range.
	other := buildFiveNode()
	foreign, _ := other.Tip("B")
	_, err = tr.RerootNode(foreign)
	assert.ErrorIs(t, err, ErrInvalidRerootTarget)
}

func TestReroot_OnInternalNode(t *testing.T) {
	tr := buildFiveNode()
	x, err := tr.Node(3)
	require.NoError(t, err)

	got, err := tr.RerootNode(x)
	require.NoError(t, err)
	assert.Equal(t, sortedTips(tr), sortedTips(got))
	assert.InDelta(t, tr.TotalLength(), got.TotalLength(), 1e-12)
	assert.True(t, got.IsBifurcating())
}

func TestUnroot_MergesRootEdge(t *testing.T) {
	tr := buildFiveNode()

	got, err := tr.Unroot()
	require.NoError(t, err)
	require.Equal(t, 3, got.Root().ChildCount())
	assert.False(t, got.IsRooted())
	assert.Equal(t, 4, got.Len())

	// A's edge absorbed the internal child's 4.
	a, _ := got.Tip("A")
	assert.Equal(t, 5.0, a.Dist)
	require.NotNil(t, a.Support)
	assert.Equal(t, 90.0, *a.Support)

	// Tip-to-tip paths survive the merge.
	assert.InDelta(t, tipDistance(tr, "A", "B"), tipDistance(got, "A", "B"), 1e-12)
	assert.InDelta(t, tipDistance(tr, "B", "C"), tipDistance(got, "B", "C"), 1e-12)
}

func TestUnroot_Errors(t *testing.T) {
	tr := buildFiveNode()
	unrooted, err := tr.Unroot()
	require.NoError(t, err)

	_, err = unrooted.Unroot()
	assert.ErrorIs(t, err, ErrAlreadyUnrooted)

	// Two-leaf tree cannot be unrooted.
	root := NewNode("")
	root.AddChild(NewNode("A"))
	root.AddChild(NewNode("B"))
	pair := New(root)
	_, err = pair.Unroot()
	assert.ErrorIs(t, err, ErrDegenerateTree)
}
