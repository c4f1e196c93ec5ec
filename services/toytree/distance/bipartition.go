// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package distance implements comparative metrics over phylogenetic
// trees: bipartition extraction, Robinson-Foulds and quartet distances,
// patristic (path length) distances and all-pairs matrices, and
// majority-rule consensus. Everything here consumes only the public
// tree and traversal contracts; bipartitions are derived, ephemeral
// values that are never stored back on a Tree.
package distance

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// Bipartition is the two-way split of the tip set induced by one
// internal edge, as a bitset over a sorted tip-name universe.
//
// Canonical form: the side not containing tip 0 (the lexicographically
// first name). Rerooting a tree never changes its canonical
// bipartitions, which is what makes splits comparable across trees
// with different rootings.
type Bipartition struct {
	// Bits is the canonical side, one bit per universe position.
	Bits []uint64

	// NodeIdx is the idx of the child node below the inducing edge.
	NodeIdx int

	// Support is the support value on the inducing edge, if any.
	Support *float64

	// Length is the branch length of the inducing edge.
	Length float64
}

// Key returns a map key uniquely identifying the split within one
// universe.
func (b Bipartition) Key() string {
	var sb strings.Builder
	sb.Grow(len(b.Bits) * 8)
	for _, w := range b.Bits {
		for i := 0; i < 8; i++ {
			sb.WriteByte(byte(w >> (8 * i)))
		}
	}
	return sb.String()
}

// Size returns the number of tips on the canonical side.
func (b Bipartition) Size() int {
	n := 0
	for _, w := range b.Bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// BipartitionSet holds all non-trivial splits of one tree over a fixed
// tip universe.
type BipartitionSet struct {
	// Universe is the sorted tip-name list; bit i means Universe[i].
	Universe []string

	// Splits is keyed by Bipartition.Key().
	Splits map[string]Bipartition
}

// Names returns the tips on the canonical side of b, in universe order.
func (s *BipartitionSet) Names(b Bipartition) []string {
	var out []string
	for i, name := range s.Universe {
		if b.Bits[i/64]>>(i%64)&1 == 1 {
			out = append(out, name)
		}
	}
	return out
}

// Bipartitions extracts every non-trivial bipartition of t.
//
// Description:
//
//	One bottom-up pass over the cached idx order: each node's tip set
//	is the union of its children's, so the whole extraction is
//	O(n * words). Trivial splits (single tip, all-but-one tip) and the
//	root's redundant split are excluded. Splits whose side contains the
//	reference tip (universe position 0) are complemented into canonical
//	form.
//
// Errors:
//
//	ErrDuplicateTipNames - the tree has no tip-name bijection.
func Bipartitions(t *tree.Tree) (*BipartitionSet, error) {
	universe, index, err := tipUniverse(t)
	if err != nil {
		return nil, err
	}
	ntips := len(universe)
	words := (ntips + 63) / 64

	set := &BipartitionSet{
		Universe: universe,
		Splits:   make(map[string]Bipartition),
	}
	if ntips < 4 {
		// No internal edge of a <4-tip tree induces a non-trivial split.
		return set, nil
	}

	fullMask := make([]uint64, words)
	for i := 0; i < ntips; i++ {
		fullMask[i/64] |= 1 << (i % 64)
	}

	sets := make([][]uint64, t.Len())
	for n := range t.Idxorder() {
		bs := make([]uint64, words)
		if n.IsLeaf() {
			pos := index[n.Name]
			bs[pos/64] |= 1 << (pos % 64)
		} else {
			for _, c := range n.Children() {
				for w, v := range sets[c.Idx()] {
					bs[w] |= v
				}
			}
		}
		sets[n.Idx()] = bs

		if n.IsLeaf() || n.Parent() == nil {
			continue
		}
		size := popcount(bs)
		if size < 2 || size > ntips-2 {
			continue
		}
		canon := make([]uint64, words)
		copy(canon, bs)
		if canon[0]&1 == 1 {
			for w := range canon {
				canon[w] = ^canon[w] & fullMask[w]
			}
		}
		b := Bipartition{
			Bits:    canon,
			NodeIdx: n.Idx(),
			Support: n.Support,
			Length:  n.Dist,
		}
		set.Splits[b.Key()] = b
	}
	return set, nil
}

// tipUniverse returns the sorted tip names and name→position index,
// failing on duplicates.
func tipUniverse(t *tree.Tree) ([]string, map[string]int, error) {
	names := t.TipNames()
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, name := range names {
		if j, dup := index[name]; dup && j != i {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateTipNames, name)
		}
		index[name] = i
	}
	return names, index, nil
}

func popcount(bs []uint64) int {
	n := 0
	for _, w := range bs {
		n += bits.OnesCount64(w)
	}
	return n
}
