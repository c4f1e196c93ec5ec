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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

func mustParse(t *testing.T, s string) *tree.Tree {
	t.Helper()
	tr, err := newick.ParseString(s)
	require.NoError(t, err)
	return tr
}

func TestBipartitions_SixTipTree(t *testing.T) {
	tr := mustParse(t, "((A,B),((C,D),(E,F)));")

	set, err := Bipartitions(tr)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, set.Universe)

	// The root's two children induce the same split, so AB|CDEF appears
	// once, in canonical (A-free) form.
	require.Len(t, set.Splits, 3)
	var sides [][]string
	for _, b := range set.Splits {
		sides = append(sides, set.Names(b))
	}
	assert.ElementsMatch(t, [][]string{
		{"C", "D", "E", "F"},
		{"C", "D"},
		{"E", "F"},
	}, sides)
}

func TestBipartitions_SmallTreesHaveNone(t *testing.T) {
	for _, s := range []string{"(A,B);", "(A,(B,C));"} {
		set, err := Bipartitions(mustParse(t, s))
		require.NoError(t, err)
		assert.Empty(t, set.Splits, s)
	}
}

func TestBipartitions_DuplicateTipNames(t *testing.T) {
	_, err := Bipartitions(mustParse(t, "((X,X),(Y,Z));"))
	assert.ErrorIs(t, err, ErrDuplicateTipNames)
}

func TestRobinsonFoulds_Metric(t *testing.T) {
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")
	t2 := mustParse(t, "((A,B),((C,E),(D,F)));")

	self, err := RobinsonFoulds(t1, t1)
	require.NoError(t, err)
	assert.Zero(t, self.Distance)
	assert.Equal(t, 3, self.SharedSplits)

	ab, err := RobinsonFoulds(t1, t2)
	require.NoError(t, err)
	ba, err := RobinsonFoulds(t2, t1)
	require.NoError(t, err)
	assert.Equal(t, ab.Distance, ba.Distance)
	assert.Equal(t, 4, ab.Distance) // only AB|CDEF survives
	assert.Equal(t, 6, ab.MaxDistance)
	assert.InDelta(t, 4.0/6.0, ab.Normalized, 1e-12)
	assert.Equal(t, 1, ab.SharedSplits)
}

func TestRobinsonFoulds_RootingIndependent(t *testing.T) {
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")
	rerooted, err := t1.Reroot("C")
	require.NoError(t, err)

	res, err := RobinsonFoulds(t1, rerooted)
	require.NoError(t, err)
	assert.Zero(t, res.Distance)

	ladder, err := t1.Ladderize()
	require.NoError(t, err)
	res, err = RobinsonFoulds(t1, ladder)
	require.NoError(t, err)
	assert.Zero(t, res.Distance)
}

func TestRobinsonFoulds_CollapseChangesByOne(t *testing.T) {
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")
	collapsed := mustParse(t, "((A,B),(C,D,(E,F)));")

	res, err := RobinsonFoulds(t1, collapsed)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Distance)
	assert.Equal(t, 2, res.SharedSplits)
}

func TestRobinsonFoulds_TipSetMismatchListsOffenders(t *testing.T) {
	t1 := mustParse(t, "((A,B),(C,D));")
	t2 := mustParse(t, "((A,B),(C,E));")

	_, err := RobinsonFoulds(t1, t2)
	require.ErrorIs(t, err, ErrTipSetMismatch)
	assert.Contains(t, err.Error(), "only in first: D")
	assert.Contains(t, err.Error(), "only in second: E")
}

func TestQuartet_FourTips(t *testing.T) {
	ctx := context.Background()
	ta := mustParse(t, "((A,B),(C,D));")
	tb := mustParse(t, "((A,C),(B,D));")

	same, err := Quartet(ctx, ta, ta)
	require.NoError(t, err)
	assert.Equal(t, QuartetResult{Different: 0, Total: 1, Normalized: 0}, same)

	diff, err := Quartet(ctx, ta, tb)
	require.NoError(t, err)
	assert.Equal(t, QuartetResult{Different: 1, Total: 1, Normalized: 1}, diff)
}

func TestQuartet_StarCountsAsDifferent(t *testing.T) {
	ctx := context.Background()
	resolved := mustParse(t, "((A,B),(C,D));")
	star := mustParse(t, "(A,B,C,D);")

	res, err := Quartet(ctx, resolved, star)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Different)

	// Two stars agree with each other.
	res, err = Quartet(ctx, star, star)
	require.NoError(t, err)
	assert.Zero(t, res.Different)
}

func TestQuartet_SixTipTotal(t *testing.T) {
	ctx := context.Background()
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")

	res, err := Quartet(ctx, t1, t1)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Total) // C(6,4)
	assert.Zero(t, res.Different)
}

func TestQuartet_TipCap(t *testing.T) {
	ctx := context.Background()
	t1 := mustParse(t, "((A,B),(C,(D,E)));")

	_, err := Quartet(ctx, t1, t1, WithMaxQuartetTips(4))
	assert.ErrorIs(t, err, ErrTooManyTips)

	_, err = Quartet(ctx, t1, t1, WithMaxQuartetTips(0))
	assert.NoError(t, err)
}

func TestPatristic_PathSums(t *testing.T) {
	tr := mustParse(t, "(A:1,(B:2,C:3)90:4);")

	cases := []struct {
		a, b string
		want float64
	}{
		{"A", "B", 7},
		{"A", "C", 8},
		{"B", "C", 5},
		{"B", "A", 7},
		{"A", "A", 0},
	}
	for _, tc := range cases {
		got, err := Patristic(tr, tc.a, tc.b)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s-%s", tc.a, tc.b)
	}

	_, err := Patristic(tr, "A", "Q")
	assert.ErrorIs(t, err, ErrUnknownTipName)
}

func TestPatristicMatrix_MatchesPairwise(t *testing.T) {
	tr := mustParse(t, "((A:1,B:2):0.5,((C:3,D:4):1,E:5):2);")

	m, err := PatristicMatrix(context.Background(), tr)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D", "E"}, m.Names)

	for i, a := range m.Names {
		assert.Zero(t, m.At(i, i))
		for j, b := range m.Names {
			want, err := Patristic(tr, a, b)
			require.NoError(t, err)
			assert.InDelta(t, want, m.At(i, j), 1e-12, "%s-%s", a, b)
			assert.Equal(t, m.At(i, j), m.At(j, i), "symmetry %s-%s", a, b)
		}
	}
}

func TestTopoMatrix_EdgeCounts(t *testing.T) {
	tr := mustParse(t, "(A:1,(B:2,C:3)90:4);")

	m, err := TopoMatrix(context.Background(), tr)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, m.Names)
	assert.Equal(t, 3.0, m.At(0, 1)) // A up 1, down 2 to B
	assert.Equal(t, 3.0, m.At(0, 2))
	assert.Equal(t, 2.0, m.At(1, 2))
}

func TestPatristicMatrix_CancelledContext(t *testing.T) {
	tr := mustParse(t, "((A,B),(C,D));")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PatristicMatrix(ctx, tr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsensus_MajorityRule(t *testing.T) {
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")
	t2 := mustParse(t, "((A,B),((C,E),(D,F)));")

	cons, err := Consensus([]*tree.Tree{t1, t1, t2}, 0.5)
	require.NoError(t, err)

	// CDEF is unanimous; CD and EF reach 2/3; CE and DF fall below.
	res, err := RobinsonFoulds(cons, t1)
	require.NoError(t, err)
	assert.Zero(t, res.Distance)

	set, err := Bipartitions(cons)
	require.NoError(t, err)
	freqs := map[int][]float64{}
	for _, b := range set.Splits {
		require.NotNil(t, b.Support)
		freqs[b.Size()] = append(freqs[b.Size()], *b.Support)
	}
	require.Len(t, freqs[4], 1)
	assert.InDelta(t, 1.0, freqs[4][0], 1e-12)
	require.Len(t, freqs[2], 2)
	for _, f := range freqs[2] {
		assert.InDelta(t, 2.0/3.0, f, 1e-12)
	}
}

func TestConsensus_UnanimousThresholdDropsDisputedSplits(t *testing.T) {
	t1 := mustParse(t, "((A,B),((C,D),(E,F)));")
	t2 := mustParse(t, "((A,B),((C,E),(D,F)));")

	cons, err := Consensus([]*tree.Tree{t1, t1, t2}, 1.0)
	require.NoError(t, err)

	set, err := Bipartitions(cons)
	require.NoError(t, err)
	require.Len(t, set.Splits, 1)
	for _, b := range set.Splits {
		assert.Equal(t, []string{"C", "D", "E", "F"}, set.Names(b))
	}
}

func TestConsensus_AveragesBranchLengths(t *testing.T) {
	t1 := mustParse(t, "((A:1,B:1):2,(C:1,(D:1,E:1):4):1);")
	t2 := mustParse(t, "((A:1,B:1):2,(C:1,(D:1,E:1):8):1);")

	cons, err := Consensus([]*tree.Tree{t1, t2}, 0.5)
	require.NoError(t, err)

	set, err := Bipartitions(cons)
	require.NoError(t, err)
	for _, b := range set.Splits {
		if names := set.Names(b); len(names) == 2 && names[0] == "D" {
			assert.InDelta(t, 6.0, b.Length, 1e-12) // mean of 4 and 8
		}
	}
}

func TestConsensus_Errors(t *testing.T) {
	t1 := mustParse(t, "((A,B),(C,D));")

	_, err := Consensus(nil, 0.5)
	assert.ErrorIs(t, err, ErrNoTrees)

	_, err = Consensus([]*tree.Tree{t1}, 0.4)
	assert.ErrorIs(t, err, ErrBadMinFreq)

	_, err = Consensus([]*tree.Tree{t1}, 1.01)
	assert.ErrorIs(t, err, ErrBadMinFreq)

	other := mustParse(t, "((A,B),(C,E));")
	_, err = Consensus([]*tree.Tree{t1, other}, 0.5)
	assert.ErrorIs(t, err, ErrTipSetMismatch)
}
